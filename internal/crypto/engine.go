// Package crypto implements field-level authenticated encryption for
// sensitive data at rest using AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// KeySize is the required key length in bytes.
	KeySize = 32
	// ivSize is the GCM nonce length. The stored format carries a 16-byte
	// IV, so the cipher is constructed with a matching nonce size.
	ivSize = 16
	// tagSize is the GCM authentication tag length.
	tagSize = 16
)

var (
	// ErrConfiguration indicates missing or malformed key material.
	ErrConfiguration = errors.New("crypto: invalid key configuration")
	// ErrDecryption indicates tampering, corruption, or a wrong key.
	ErrDecryption = errors.New("crypto: decryption failed")
	// ErrNotEncrypted reports a value that is not in encrypted form. It
	// matches ErrDecryption under errors.Is.
	ErrNotEncrypted = fmt.Errorf("%w: value is not in encrypted form", ErrDecryption)
)

// Engine performs symmetric authenticated encryption. The key is fixed at
// construction; all operations are stateless per call and safe for
// concurrent use.
type Engine struct {
	aead cipher.AEAD
}

// NewEngine builds an Engine from a hex- or base64-encoded 32-byte key.
func NewEngine(encodedKey string) (*Engine, error) {
	key, err := DecodeKey(encodedKey)
	if err != nil {
		return nil, err
	}
	return NewEngineWithKey(key)
}

// NewEngineWithKey builds an Engine from raw key bytes.
func NewEngineWithKey(key []byte) (*Engine, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrConfiguration, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return &Engine{aead: aead}, nil
}

// DecodeKey decodes a hex or base64 key and checks its length.
func DecodeKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: key is empty", ErrConfiguration)
	}
	if len(encoded) == KeySize*2 {
		if key, err := hex.DecodeString(encoded); err == nil {
			return key, nil
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		key, err := enc.DecodeString(encoded)
		if err == nil && len(key) == KeySize {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: key must decode to %d bytes of hex or base64", ErrConfiguration, KeySize)
}

// GenerateKey returns a fresh random key, hex-encoded. Intended for
// development fallbacks and key provisioning tooling.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// Encrypt seals the plaintext under a freshly generated random IV. Two calls
// on identical plaintext yield different IV/ciphertext pairs; IVs are never
// reused with the engine's key.
func (e *Engine) Encrypt(plaintext string) (Field, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return Field{}, fmt.Errorf("generate iv: %w", err)
	}
	sealed := e.aead.Seal(nil, iv, []byte(plaintext), nil)
	body := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]
	return Field{
		Ciphertext: hex.EncodeToString(body),
		IV:         hex.EncodeToString(iv),
		AuthTag:    hex.EncodeToString(tag),
		Encrypted:  true,
	}, nil
}

// Decrypt opens an encrypted field. It fails with ErrDecryption when the
// authentication tag does not verify or the field is not in encrypted form.
func (e *Engine) Decrypt(f Field) (string, error) {
	if !f.Encrypted {
		return "", ErrNotEncrypted
	}
	body, err := hex.DecodeString(f.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", ErrDecryption)
	}
	iv, err := hex.DecodeString(f.IV)
	if err != nil || len(iv) != ivSize {
		return "", fmt.Errorf("%w: malformed iv", ErrDecryption)
	}
	tag, err := hex.DecodeString(f.AuthTag)
	if err != nil || len(tag) != tagSize {
		return "", fmt.Errorf("%w: malformed auth tag", ErrDecryption)
	}
	plaintext, err := e.aead.Open(nil, iv, append(body, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plaintext), nil
}

// EncryptObject JSON-serializes the value and encrypts the result.
func (e *Engine) EncryptObject(v any) (Field, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Field{}, fmt.Errorf("marshal object: %w", err)
	}
	return e.Encrypt(string(data))
}

// DecryptObject decrypts the field and unmarshals the plaintext into out.
func (e *Engine) DecryptObject(f Field, out any) error {
	plaintext, err := e.Decrypt(f)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(plaintext), out)
}
