package keystore

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	"github.com/coinbase/cb-paillier-go/pkg/paillier"
)

const (
	// DefaultIterations is the PBKDF2-SHA-256 work factor for new entries.
	DefaultIterations = 600000

	// MinIterations is the lowest work factor accepted by Open.
	MinIterations = 1000

	saltSize = 32
)

type sealed struct {
	salt       []byte
	nonce      []byte
	iterations int
	box        []byte
}

func deriveKey(passphrase, salt []byte, iterations int) []byte {
	return pbkdf2.Key(passphrase, salt, iterations, chacha20poly1305.KeySize, sha256.New)
}

// seal encrypts plaintext under passphrase, binding ad to the result.
func seal(random io.Reader, passphrase, plaintext, ad []byte, iterations int) (*sealed, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(random, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(random, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key := deriveKey(passphrase, salt, iterations)
	defer paillier.ZeroizeBytes(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &sealed{
		salt:       salt,
		nonce:      nonce,
		iterations: iterations,
		box:        aead.Seal(nil, nonce, plaintext, ad),
	}, nil
}

// open reverses seal. Any authentication failure is ErrSealBroken.
func (s *sealed) open(passphrase, ad []byte) ([]byte, error) {
	if len(s.nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: bad nonce length", ErrSealBroken)
	}
	key := deriveKey(passphrase, s.salt, s.iterations)
	defer paillier.ZeroizeBytes(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, s.nonce, s.box, ad)
	if err != nil {
		return nil, ErrSealBroken
	}
	return plaintext, nil
}
