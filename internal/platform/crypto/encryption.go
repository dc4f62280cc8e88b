package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// Fields sealed at rest. The field name is authenticated with the value, so a
// ciphertext copied into another column fails to open.
const (
	FieldBankAccount = "users.bank_account_number"
	FieldMFASecret   = "users.mfa_secret"
)

var (
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrInvalidKey         = errors.New("DATA_ENCRYPTION_KEY must decode to 32 bytes")
)

// Service seals employee bank details and MFA secrets with AES-256-GCM. With
// no key configured values are stored as given, which keeps local setups
// working.
type Service struct {
	gcm cipher.AEAD
}

func New(key string) (*Service, error) {
	if key == "" {
		return &Service{}, nil
	}
	raw, ok := parseKey(key)
	if !ok {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &Service{gcm: gcm}, nil
}

func (s *Service) Configured() bool {
	return s != nil && s.gcm != nil
}

// Seal encrypts value for field. An empty value stays empty.
func (s *Service) Seal(field, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	if !s.Configured() {
		return []byte(value), nil
	}
	nonce := make([]byte, s.gcm.NonceSize(), s.gcm.NonceSize()+len(value)+s.gcm.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.gcm.Seal(nonce, nonce, []byte(value), []byte(field)), nil
}

// Open reverses Seal for the same field.
func (s *Service) Open(field string, sealed []byte) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	if !s.Configured() {
		return string(sealed), nil
	}
	n := s.gcm.NonceSize()
	if len(sealed) < n+s.gcm.Overhead() {
		return "", ErrCiphertextTooShort
	}
	plain, err := s.gcm.Open(nil, sealed[:n], sealed[n:], []byte(field))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", field, err)
	}
	return string(plain), nil
}

// parseKey accepts a 64-character hex key, base64 (padded or not) or 32 raw
// bytes.
func parseKey(key string) ([]byte, bool) {
	candidates := [][]byte{[]byte(key)}
	if b, err := hex.DecodeString(key); err == nil {
		candidates = append([][]byte{b}, candidates...)
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(key); err == nil {
			candidates = append(candidates, b)
		}
	}
	for _, c := range candidates {
		if len(c) == 32 {
			return c, true
		}
	}
	return nil, false
}
