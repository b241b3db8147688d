// Package security hashes customer passwords with Argon2id. Hashes use the
// PHC string format, so the parameters travel with each hash and can be
// raised later without invalidating existing accounts.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

var ErrInvalidHash = errors.New("invalid argon2id hash")

// MinPasswordLength is enforced on registration.
const MinPasswordLength = 6

const phcPrefix = "$argon2id$"

var b64 = base64.RawStdEncoding

// ArgonParams is the cost of one hash.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// differs reports whether any cost parameter changed.
func (p ArgonParams) differs(other ArgonParams) bool {
	return p.Memory != other.Memory || p.Time != other.Time ||
		p.Parallelism != other.Parallelism || p.KeyLen != other.KeyLen
}

// phc is a decoded hash string.
type phc struct {
	params ArgonParams
	salt   []byte
	key    []byte
}

func (h phc) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s", phcPrefix, argon2.Version,
		h.params.Memory, h.params.Time, h.params.Parallelism,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func parsePHC(encoded string) (phc, error) {
	rest, ok := strings.CutPrefix(encoded, phcPrefix)
	if !ok {
		return phc{}, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return phc{}, ErrInvalidHash
	}

	var (
		out     phc
		version int
	)
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil || version != argon2.Version {
		return phc{}, ErrInvalidHash
	}
	p := &out.params
	if n, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil || n != 3 {
		return phc{}, ErrInvalidHash
	}
	if p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 {
		return phc{}, ErrInvalidHash
	}

	var err error
	if out.salt, err = b64.DecodeString(fields[2]); err != nil || len(out.salt) == 0 {
		return phc{}, ErrInvalidHash
	}
	if out.key, err = b64.DecodeString(fields[3]); err != nil || len(out.key) == 0 {
		return phc{}, ErrInvalidHash
	}
	p.SaltLen = uint32(len(out.salt))
	p.KeyLen = uint32(len(out.key))
	return out, nil
}

func derive(password string, salt []byte, p ArgonParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
}

// Hasher hashes with the configured cost and verifies hashes of any cost.
type Hasher struct {
	params ArgonParams
}

// NewHasher clamps cfg to sane bounds so a typo cannot make logins take
// minutes or hashes trivially cheap.
func NewHasher(cfg config.PasswordConfig) *Hasher {
	return &Hasher{params: ArgonParams{
		Memory:      uint32(min(max(cfg.ArgonMemoryKB, 8), 512*1024)),
		Time:        uint32(min(max(cfg.ArgonTime, 1), 10)),
		Parallelism: uint8(min(max(cfg.ArgonParallelism, 1), 255)),
		SaltLen:     uint32(min(max(cfg.ArgonSaltLen, 8), 64)),
		KeyLen:      uint32(min(max(cfg.ArgonKeyLen, 16), 64)),
	}}
}

func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return phc{params: h.params, salt: salt, key: derive(password, salt, h.params)}.String(), nil
}

// Verify returns ErrInvalidHash only when encoded cannot be parsed; a wrong
// password is (false, nil).
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	stored, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	computed := derive(password, stored.salt, stored.params)
	return subtle.ConstantTimeCompare(stored.key, computed) == 1, nil
}

// NeedsRehash is true when encoded was produced with other parameters than
// the current configuration, or cannot be parsed at all.
func (h *Hasher) NeedsRehash(encoded string) bool {
	stored, err := parsePHC(encoded)
	return err != nil || stored.params.differs(h.params)
}
