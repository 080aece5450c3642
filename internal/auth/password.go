package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonKeyLen  = 32 // output hash length
	argonSaltLen = 16
)

// PasswordParams are the Argon2id cost parameters. Iterations is the
// tunable work factor exposed as HASH_COST.
type PasswordParams struct {
	Iterations uint32
	MemoryKiB  uint32
	Threads    uint8
}

// DefaultPasswordParams follows the OWASP recommendation for Argon2id.
var DefaultPasswordParams = PasswordParams{Iterations: 3, MemoryKiB: 64 * 1024, Threads: 1}

// Hasher hashes and verifies passwords with fixed Argon2id parameters.
type Hasher struct {
	params PasswordParams
}

// NewHasher returns a Hasher. Zero fields fall back to DefaultPasswordParams.
func NewHasher(p PasswordParams) *Hasher {
	if p.Iterations == 0 {
		p.Iterations = DefaultPasswordParams.Iterations
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = DefaultPasswordParams.MemoryKiB
	}
	if p.Threads == 0 {
		p.Threads = DefaultPasswordParams.Threads
	}
	return &Hasher{params: p}
}

// Hash returns password in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Threads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB, h.params.Iterations, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword checks a plaintext password against a PHC hash string using
// the parameters recorded in the hash, so changing HASH_COST does not
// invalidate existing accounts.
func VerifyPassword(password, encodedHash string) (bool, error) {
	salt, key, params, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.Iterations, params.MemoryKiB, params.Threads, uint32(len(key))) //nolint:gosec // G115: key length always fits uint32

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

// decodePHC parses an Argon2id PHC string into its components.
func decodePHC(encoded string) (salt, key []byte, params PasswordParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return nil, nil, params, fmt.Errorf("invalid PHC hash format")
	}
	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil { //nolint:govet // shadow
		return nil, nil, params, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, params, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.MemoryKiB, &params.Iterations, &params.Threads); err != nil { //nolint:govet // shadow
		return nil, nil, params, fmt.Errorf("parsing parameters: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, params, fmt.Errorf("decoding hash: %w", err)
	}

	return salt, key, params, nil
}
