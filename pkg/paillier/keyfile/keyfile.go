package keyfile

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/coinbase/cb-paillier-go/pkg/paillier"
)

// Version is the document format written by this package.
const Version = 1

const (
	KindPublicKey  = "paillier-public-key"
	KindPrivateKey = "paillier-private-key"
	KindCiphertext = "paillier-ciphertext"
)

var (
	// ErrInvalidDocument indicates a document that cannot be parsed or is
	// missing required fields.
	ErrInvalidDocument = errors.New("keyfile: invalid document")

	// ErrUnsupportedVersion indicates a document written by a newer format.
	ErrUnsupportedVersion = errors.New("keyfile: unsupported version")

	// ErrInconsistentKey indicates stored precomputed values that do not
	// match the values derived from p and q.
	ErrInconsistentKey = errors.New("keyfile: inconsistent private key")

	// ErrKeyMismatch indicates a ciphertext addressed to a different key.
	ErrKeyMismatch = errors.New("keyfile: ciphertext encrypted under a different key")
)

// Metadata is the envelope shared by every document.
type Metadata struct {
	ID        uuid.UUID
	Bits      int
	CreatedAt time.Time
}

// NewMetadata returns metadata with a fresh random ID and the current time.
func NewMetadata(bits int) Metadata {
	return Metadata{
		ID:        uuid.New(),
		Bits:      bits,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// PublicKeyFile is a decoded public key document.
type PublicKeyFile struct {
	Metadata
	Key *paillier.PublicKey
}

// PrivateKeyFile is a decoded private key document.
type PrivateKeyFile struct {
	Metadata
	Key *paillier.PrivateKey
}

// Public returns the public half of f under the same metadata.
func (f *PrivateKeyFile) Public() *PublicKeyFile {
	return &PublicKeyFile{Metadata: f.Metadata, Key: f.Key.PublicKey()}
}

// privateFields lists the stored private values in document order.
func privateFields(sk *paillier.PrivateKey) []namedInt {
	return []namedInt{
		{"p", sk.P()},
		{"q", sk.Q()},
		{"p_sq", sk.PSquared()},
		{"q_sq", sk.QSquared()},
		{"n", sk.N()},
		{"n_sq", sk.NSquared()},
		{"p_minus_one", sk.PMinusOne()},
		{"q_minus_one", sk.QMinusOne()},
		{"phi", sk.Phi()},
		{"d_n", sk.DN()},
		{"d_p", sk.DP()},
		{"d_q", sk.DQ()},
		{"p_inv", sk.PInv()},
		{"h_p", sk.HP()},
		{"h_q", sk.HQ()},
		{"mu", sk.Mu()},
	}
}

// knownPrivateFields holds every name privateFields produces.
var knownPrivateFields = map[string]bool{
	"p": true, "q": true, "p_sq": true, "q_sq": true, "n": true, "n_sq": true,
	"p_minus_one": true, "q_minus_one": true, "phi": true, "d_n": true,
	"d_p": true, "d_q": true, "p_inv": true, "h_p": true, "h_q": true, "mu": true,
}

type namedInt struct {
	name  string
	value *big.Int
}

// rebuildPrivate derives a key from p and q and checks every stored value
// that is present against the derived one.
func rebuildPrivate(p, q *big.Int, stored map[string]*big.Int) (*paillier.PrivateKey, error) {
	if p == nil || q == nil {
		return nil, fmt.Errorf("%w: p and q are required", ErrInvalidDocument)
	}
	sk, err := paillier.NewPrivateKey(p, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInconsistentKey, err)
	}
	for _, f := range privateFields(sk) {
		v, ok := stored[f.name]
		if !ok || v == nil {
			continue
		}
		if v.Cmp(f.value) != 0 {
			sk.Zeroize()
			return nil, fmt.Errorf("%w: field %s", ErrInconsistentKey, f.name)
		}
	}
	return sk, nil
}

func checkHeader(kind, wantKind string, version int) error {
	if kind != wantKind {
		return fmt.Errorf("%w: kind %q, want %q", ErrInvalidDocument, kind, wantKind)
	}
	if version < 1 {
		return fmt.Errorf("%w: missing version", ErrInvalidDocument)
	}
	if version > Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return nil
}

func checkBits(meta Metadata, n *big.Int) error {
	if meta.Bits != 0 && meta.Bits != n.BitLen() {
		return fmt.Errorf("%w: bits %d does not match modulus of %d bits", ErrInvalidDocument, meta.Bits, n.BitLen())
	}
	return nil
}
