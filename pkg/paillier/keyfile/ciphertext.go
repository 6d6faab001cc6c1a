package keyfile

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// Ciphertext is a ciphertext tagged with the ID of the key it was encrypted
// under. Decrypting under another key yields an unrelated plaintext without
// any error, so tools check KeyID before decrypting.
type Ciphertext struct {
	KeyID uuid.UUID
	C     *big.Int
}

type jsonCiphertext struct {
	Kind    string    `json:"kind"`
	Version int       `json:"version"`
	KeyID   uuid.UUID `json:"key_id"`
	C       string    `json:"c"`
}

// MarshalCiphertext encodes ct as a JSON document.
func MarshalCiphertext(ct *Ciphertext) ([]byte, error) {
	if ct.C == nil {
		return nil, fmt.Errorf("%w: missing ciphertext", ErrInvalidDocument)
	}
	return json.Marshal(jsonCiphertext{
		Kind:    KindCiphertext,
		Version: Version,
		KeyID:   ct.KeyID,
		C:       ct.C.String(),
	})
}

// UnmarshalCiphertext decodes a JSON ciphertext document.
func UnmarshalCiphertext(data []byte) (*Ciphertext, error) {
	var doc jsonCiphertext
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := checkHeader(doc.Kind, KindCiphertext, doc.Version); err != nil {
		return nil, err
	}
	c, err := parseDecimal("c", doc.C)
	if err != nil {
		return nil, err
	}
	return &Ciphertext{KeyID: doc.KeyID, C: c}, nil
}

// Decrypt decrypts ct with the key in f after checking that ct was addressed
// to it.
func (f *PrivateKeyFile) Decrypt(ct *Ciphertext) (*big.Int, error) {
	if !SameID(ct.KeyID, f.ID) {
		return nil, fmt.Errorf("%w: ciphertext key %s, private key %s", ErrKeyMismatch, ct.KeyID, f.ID)
	}
	return f.Key.Decrypt(ct.C)
}

// Encrypt encrypts m under the key in f and tags the result with its ID.
func (f *PublicKeyFile) Encrypt(m *big.Int) (*Ciphertext, error) {
	c, err := f.Key.Encrypt(nil, m)
	if err != nil {
		return nil, err
	}
	return &Ciphertext{KeyID: f.ID, C: c}, nil
}

// SameID reports whether a and b are the same key ID.
func SameID(a, b uuid.UUID) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
