package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"

	// DefaultMaxInputBytes caps hasher input when Config.MaxInputBytes is zero.
	DefaultMaxInputBytes = 1024
)

// ErrMalformedHash indicates a stored hash that is not a supported PHC string.
var ErrMalformedHash = errors.New("malformed password hash")

// ErrInputLength indicates hasher input outside the accepted size range.
var ErrInputLength = errors.New("password input length out of range")

// Config holds Argon2id cost parameters.
type Config struct {
	Memory        uint32
	Time          uint32
	Parallelism   uint8
	SaltLength    uint32
	KeyLength     uint32
	MaxInputBytes int
}

// DefaultConfig returns production cost parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher produces and checks PHC-encoded Argon2id hashes. Immutable and safe
// for concurrent use.
type Hasher struct {
	config Config
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxInputBytes <= 0 {
		cfg.MaxInputBytes = DefaultMaxInputBytes
	}
	return &Hasher{config: cfg}, nil
}

// Hash returns the PHC string for input.
func (h *Hasher) Hash(input string) (string, error) {
	if input == "" || len(input) > h.config.MaxInputBytes {
		return "", ErrInputLength
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(input), salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// HashPreset hashes Preset(name, password).
func (h *Hasher) HashPreset(name, password string) (string, error) {
	return h.Hash(Preset(name, password))
}

// Verify reports whether input matches encoded. A malformed encoded hash
// returns ErrMalformedHash.
func (h *Hasher) Verify(input, encoded string) (bool, error) {
	if len(input) > h.config.MaxInputBytes {
		return false, ErrInputLength
	}
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}

	computed := argon2.IDKey([]byte(input), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.hash)))
	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// VerifyPreset verifies Preset(name, password) against encoded.
func (h *Hasher) VerifyPreset(name, password, encoded string) (bool, error) {
	return h.Verify(Preset(name, password), encoded)
}

// NeedsRehash reports whether encoded was produced with weaker parameters than
// the Hasher's.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	return h.config.Memory > parsed.memory ||
		h.config.Time > parsed.time ||
		h.config.Parallelism > parsed.parallelism ||
		int(h.config.KeyLength) != len(parsed.hash), nil
}

func parsePHC(encoded string) (*parsedPHC, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	out := &parsedPHC{}
	if err := parseParams(parts[3], out); err != nil {
		return nil, err
	}

	if out.salt, err = decodeB64(parts[4]); err != nil || len(out.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	if out.hash, err = decodeB64(parts[5]); err != nil || len(out.hash) < int(minKeyLength) {
		return nil, errors.New("invalid hash")
	}
	return out, nil
}

// decodeB64 accepts padded and unpadded standard base64, since both appear in
// PHC strings written by different libraries.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func parseParams(part string, out *parsedPHC) error {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return errors.New("invalid parameter format")
	}

	var memorySet, timeSet, parallelismSet bool
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("invalid parameter entry")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return errors.New("invalid memory parameter")
			}
			out.memory, memorySet = uint32(n), true
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minTimeCost) {
				return errors.New("invalid time parameter")
			}
			out.time, timeSet = uint32(n), true
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return errors.New("invalid parallelism parameter")
			}
			out.parallelism, parallelismSet = uint8(n), true
		default:
			return errors.New("unsupported parameter")
		}
	}
	if !memorySet || !timeSet || !parallelismSet {
		return errors.New("missing parameters")
	}
	return nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}
	if cfg.MaxInputBytes < 0 {
		return errors.New("password max input bytes must be >= 0")
	}
	return nil
}
