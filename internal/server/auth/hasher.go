// Package auth holds the stateless credential primitives: the argon2id
// password hasher, access-token signing and the email-confirmation token
// authority.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes

	// Upper bounds accepted from a stored hash.
	maxArgon2Memory = 256 * 1024 // KiB
	maxArgon2Time   = 16
)

// DummyHash is a well-formed argon2id hash of a random value. Verifying
// against it costs the same as verifying a real password, so callers can
// keep response timing flat for unknown usernames.
const DummyHash = "$argon2id$v=19$m=65536,t=1,p=4$c29tZXNhbHRzb21lc2FsdA$Vq1cVtjRYu6jDvm2zGfbP3pnnHj/KU3jzl2zH5/Fvxw"

// PasswordHasher produces and verifies salted password hashes.
type PasswordHasher interface {
	// Hash produces an encoded hash of the password.
	Hash(password string) (string, error)

	// Validate reports whether password matches hash. A mismatch is
	// (false, nil); only a malformed hash is an error.
	Validate(password, hash string) (bool, error)
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	randRead func([]byte) (int, error)
}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{randRead: rand.Read}
}

// Hash produces an argon2id hash of the password in PHC string format.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", common.ErrEmptyInput
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := h.randRead(salt); err != nil {
		return "", errors.Join(common.ErrHashingFailure, err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Validate checks if the password matches the encoded hash.
func (h *Argon2idHasher) Validate(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("%w: invalid hash format", common.ErrHashingFailure)
	}

	if parts[1] != "argon2id" {
		return false, fmt.Errorf("%w: unsupported hash algorithm: %s", common.ErrHashingFailure, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrHashingFailure, err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported argon2 version %d", common.ErrHashingFailure, version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrHashingFailure, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrHashingFailure, err)
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrHashingFailure, err)
	}

	if memory == 0 || memory > maxArgon2Memory {
		return false, fmt.Errorf("%w: invalid memory %d", common.ErrHashingFailure, memory)
	}
	if time == 0 || time > maxArgon2Time {
		return false, fmt.Errorf("%w: invalid iterations %d", common.ErrHashingFailure, time)
	}
		if threads == 0 || threads > 255 {
		return false, fmt.Errorf("%w: invalid parallelism %d", common.ErrHashingFailure, threads)
	}

	keyLen := len(expected)
	if keyLen == 0 || keyLen > 1<<10 {
		return false, fmt.Errorf("%w: invalid key length %d", common.ErrHashingFailure, keyLen)
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}
