package auth

import (
	"github.com/matthewhartstonge/argon2"
)

// Hasher hashes and verifies passwords with argon2id.
type Hasher struct {
	config argon2.Config
}

// NewHasher uses the library's recommended parameters.
func NewHasher() *Hasher {
	return &Hasher{config: argon2.DefaultConfig()}
}

// NewHasherWithConfig allows cheaper parameters, e.g. in tests and seeding.
func NewHasherWithConfig(cfg argon2.Config) *Hasher {
	return &Hasher{config: cfg}
}

// Hash returns the encoded hash of password with a random salt.
func (h *Hasher) Hash(password string) (string, error) {
	encoded, err := h.config.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// Verify reports whether password matches the encoded hash.
func (h *Hasher) Verify(encoded, password string) bool {
	raw, err := argon2.Decode([]byte(encoded))
	if err != nil {
		return false
	}
	ok, err := raw.Verify([]byte(password))
	return err == nil && ok
}

// LightConfig returns cheap argon2 parameters for tests.
func LightConfig() argon2.Config {
	cfg := argon2.DefaultConfig()
	cfg.TimeCost = 1
	cfg.MemoryCost = 1024
	cfg.Parallelism = 1
	return cfg
}
