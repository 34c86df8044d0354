package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Hasher turns secrets into self-describing one-way hashes and checks
// candidates against them.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(hashed, candidate string) (bool, error)
}

// ErrCorruptHash means a stored hash parsed but its parameters cannot have
// been produced by Hash.
var ErrCorruptHash = errors.New("stored hash has impossible parameters")

// Argon2Params are the Argon2id cost parameters. Memory is in KiB.
type Argon2Params struct {
	Memory  uint32 `env:"MEMORY_KIB" envDefault:"65536"`
	Time    uint32 `env:"ITERATIONS" envDefault:"3"`
	Threads uint8  `env:"PARALLELISM" envDefault:"1"`
	KeyLen  uint32 `env:"KEY_LENGTH" envDefault:"32"`
	SaltLen uint32 `env:"SALT_LENGTH" envDefault:"16"`
}

// DefaultArgon2Params returns 64 MiB, 3 passes, one lane.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Memory: 64 * 1024, Time: 3, Threads: 1, KeyLen: 32, SaltLen: 16}
}

// Validate rejects parameter sets argon2 cannot run with.
func (p Argon2Params) Validate() error {
	switch {
	case p.Time == 0:
		return errors.New("argon2: iterations must be positive")
	case p.Threads == 0:
		return errors.New("argon2: parallelism must be positive")
	case p.Memory < 8*uint32(p.Threads):
		return errors.New("argon2: memory must be at least 8 KiB per lane")
	case p.KeyLen < 16:
		return errors.New("argon2: key length must be at least 16 bytes")
	case p.SaltLen < 8:
		return errors.New("argon2: salt length must be at least 8 bytes")
	}
	return nil
}

// Argon2Hasher hashes with Argon2id and encodes results in PHC form:
//
//	$argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
//
// Verification reads the parameters from the stored string, so hashes made
// under older settings keep verifying after the settings change.
type Argon2Hasher struct {
	params Argon2Params
}

// NewArgon2Hasher validates params and returns a hasher.
func NewArgon2Hasher(params Argon2Params) (*Argon2Hasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2Hasher{params: params}, nil
}

// Hash derives a fresh-salted Argon2id hash of secret.
func (h *Argon2Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether candidate matches hashed in constant time. An
// empty or unparseable hashed value is a plain mismatch. ErrCorruptHash is
// returned only for a well-formed hash with unusable parameters.
func (h *Argon2Hasher) Verify(hashed, candidate string) (bool, error) {
	salt, key, params, err := decodePHC(hashed)
	if err != nil {
		return false, nil
	}
	if params.Time == 0 || params.Threads == 0 || params.Memory < 8*uint32(params.Threads) ||
		len(salt) == 0 || len(key) == 0 {
		return false, fmt.Errorf("%w: %s", ErrCorruptHash, phcParamString(params))
	}

	//nolint:gosec // key length is bounded by the stored hash
	got := argon2.IDKey([]byte(candidate), salt, params.Time, params.Memory, params.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, got) == 1, nil
}

func phcParamString(p Argon2Params) string {
	return fmt.Sprintf("m=%d,t=%d,p=%d", p.Memory, p.Time, p.Threads)
}

// decodePHC splits an Argon2id PHC string into salt, key and parameters.
func decodePHC(encoded string) (salt, key []byte, params Argon2Params, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, nil, params, errors.New("invalid PHC hash format")
	}
	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, params, fmt.Errorf("parse version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, params, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return nil, nil, params, fmt.Errorf("parse parameters: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, params, fmt.Errorf("decode salt: %w", err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, params, fmt.Errorf("decode key: %w", err)
	}
	return salt, key, params, nil
}
