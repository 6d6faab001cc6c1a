package keyfile

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/coinbase/cb-paillier-go/pkg/paillier"
)

type jsonHeader struct {
	Kind      string    `json:"kind"`
	Version   int       `json:"version"`
	ID        uuid.UUID `json:"id"`
	Bits      int       `json:"bits"`
	CreatedAt time.Time `json:"created_at"`
}

func newJSONHeader(kind string, meta Metadata) jsonHeader {
	return jsonHeader{
		Kind:      kind,
		Version:   Version,
		ID:        meta.ID,
		Bits:      meta.Bits,
		CreatedAt: meta.CreatedAt,
	}
}

func (h jsonHeader) metadata() Metadata {
	return Metadata{ID: h.ID, Bits: h.Bits, CreatedAt: h.CreatedAt}
}

type jsonPublicKey struct {
	jsonHeader
	N        string `json:"n"`
	NSquared string `json:"n_sq,omitempty"`
}

type jsonPrivateKey struct {
	jsonHeader
	Fields map[string]string `json:"key"`
}

// MarshalPublicJSON encodes a public key document.
func MarshalPublicJSON(f *PublicKeyFile) ([]byte, error) {
	doc := jsonPublicKey{
		jsonHeader: newJSONHeader(KindPublicKey, f.Metadata),
		N:          f.Key.N().String(),
		NSquared:   f.Key.NSquared().String(),
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalPublicJSON decodes a public key document.
func UnmarshalPublicJSON(data []byte) (*PublicKeyFile, error) {
	var doc jsonPublicKey
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := checkHeader(doc.Kind, KindPublicKey, doc.Version); err != nil {
		return nil, err
	}
	n, err := parseDecimal("n", doc.N)
	if err != nil {
		return nil, err
	}
	pk, err := paillier.NewPublicKey(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if doc.NSquared != "" {
		nSquared, err := parseDecimal("n_sq", doc.NSquared)
		if err != nil {
			return nil, err
		}
		if nSquared.Cmp(pk.NSquared()) != 0 {
			return nil, fmt.Errorf("%w: n_sq does not match n", ErrInvalidDocument)
		}
	}
	meta := doc.metadata()
	if err := checkBits(meta, n); err != nil {
		return nil, err
	}
	return &PublicKeyFile{Metadata: meta, Key: pk}, nil
}

// MarshalPrivateJSON encodes a private key document with every precomputed
// value.
func MarshalPrivateJSON(f *PrivateKeyFile) ([]byte, error) {
	fields := privateFields(f.Key)
	doc := jsonPrivateKey{
		jsonHeader: newJSONHeader(KindPrivateKey, f.Metadata),
		Fields:     make(map[string]string, len(fields)),
	}
	for _, field := range fields {
		doc.Fields[field.name] = field.value.String()
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalPrivateJSON decodes a private key document. Only p and q are
// required; any other stored value must match the one derived from them, and
// unknown field names are rejected.
func UnmarshalPrivateJSON(data []byte) (*PrivateKeyFile, error) {
	var doc jsonPrivateKey
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := checkHeader(doc.Kind, KindPrivateKey, doc.Version); err != nil {
		return nil, err
	}

	stored := make(map[string]*big.Int, len(doc.Fields))
	for name, s := range doc.Fields {
		if !knownPrivateFields[name] {
			return nil, fmt.Errorf("%w: unknown key field %q", ErrInvalidDocument, name)
		}
		v, err := parseDecimal(name, s)
		if err != nil {
			return nil, err
		}
		stored[name] = v
	}
	sk, err := rebuildPrivate(stored["p"], stored["q"], stored)
	if err != nil {
		return nil, err
	}
	meta := doc.metadata()
	if err := checkBits(meta, sk.N()); err != nil {
		sk.Zeroize()
		return nil, err
	}
	return &PrivateKeyFile{Metadata: meta, Key: sk}, nil
}

func parseDecimal(name, s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidDocument, name)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: %s is not a decimal integer", ErrInvalidDocument, name)
		}
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a decimal integer", ErrInvalidDocument, name)
	}
	return v, nil
}
