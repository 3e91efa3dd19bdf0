package dbx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_Pings(t *testing.T) {
	db, err := Open(context.Background(), "sqlite", "file:"+t.Name()+"?mode=memory&cache=shared", 0)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "nope", "x", 0)
	require.Error(t, err)
}

func TestOpen_GivesUpWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, "sqlite", "file:/nonexistent-dir/x.db?mode=ro", 3)
	require.Error(t, err)
}
