package common

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// randRead is a seam for crypto/rand.Read so tests can simulate a failing
// entropy source.
var randRead = rand.Read

// MakeRandHexString generates size random bytes and returns them hex-encoded,
// so the resulting string is 2*size characters long. It returns
// ErrEntropyFailure if the random source fails.
func MakeRandHexString(size int) (string, error) {
	b, err := GenerateRandByteArray(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns size bytes read from crypto/rand.
func GenerateRandByteArray(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := randRead(b); err != nil {
		return nil, errors.Join(ErrEntropyFailure, err)
	}
	return b, nil
}

// HashToken returns the hex-encoded SHA-256 digest of token. Opaque tokens are
// stored and looked up by this digest only.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// WipeByteArray overwrites b with zeros. Nil slices are ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
