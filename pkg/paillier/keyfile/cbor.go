package keyfile

import (
	"fmt"
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/coinbase/cb-paillier-go/pkg/paillier"
)

type rawHeader struct {
	Kind      string `cbor:"kind"`
	Version   int    `cbor:"version"`
	ID        []byte `cbor:"id"`
	Bits      int    `cbor:"bits"`
	CreatedAt int64  `cbor:"created_at"`
}

func newRawHeader(kind string, meta Metadata) rawHeader {
	return rawHeader{
		Kind:      kind,
		Version:   Version,
		ID:        meta.ID[:],
		Bits:      meta.Bits,
		CreatedAt: meta.CreatedAt.Unix(),
	}
}

func (h rawHeader) metadata() (Metadata, error) {
	id, err := uuid.FromBytes(h.ID)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: id: %v", ErrInvalidDocument, err)
	}
	return Metadata{ID: id, Bits: h.Bits, CreatedAt: time.Unix(h.CreatedAt, 0).UTC()}, nil
}

type rawPublicKey struct {
	Header rawHeader `cbor:"header"`
	N      []byte    `cbor:"n"`
}

type rawPrivateKey struct {
	Header    rawHeader `cbor:"header"`
	P         []byte    `cbor:"p"`
	Q         []byte    `cbor:"q"`
	PSquared  []byte    `cbor:"p_sq"`
	QSquared  []byte    `cbor:"q_sq"`
	N         []byte    `cbor:"n"`
	NSquared  []byte    `cbor:"n_sq"`
	PMinusOne []byte    `cbor:"p_minus_one"`
	QMinusOne []byte    `cbor:"q_minus_one"`
	Phi       []byte    `cbor:"phi"`
	DN        []byte    `cbor:"d_n"`
	DP        []byte    `cbor:"d_p"`
	DQ        []byte    `cbor:"d_q"`
	PInv      []byte    `cbor:"p_inv"`
	HP        []byte    `cbor:"h_p"`
	HQ        []byte    `cbor:"h_q"`
	Mu        []byte    `cbor:"mu"`
}

// byteLen is the encoded width of values reduced modulo m.
func byteLen(m *big.Int) int {
	return (m.BitLen() + 7) / 8
}

// fixed encodes x big-endian, left padded to size bytes.
func fixed(x *big.Int, size int) []byte {
	return x.FillBytes(make([]byte, size))
}

// MarshalPublicCBOR encodes a public key document.
func MarshalPublicCBOR(f *PublicKeyFile) ([]byte, error) {
	n := f.Key.N()
	return cbor.Marshal(rawPublicKey{
		Header: newRawHeader(KindPublicKey, f.Metadata),
		N:      fixed(n, byteLen(n)),
	})
}

// UnmarshalPublicCBOR decodes a public key document.
func UnmarshalPublicCBOR(data []byte) (*PublicKeyFile, error) {
	var raw rawPublicKey
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := checkHeader(raw.Header.Kind, KindPublicKey, raw.Header.Version); err != nil {
		return nil, err
	}
	meta, err := raw.Header.metadata()
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(raw.N)
	pk, err := paillier.NewPublicKey(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := checkBits(meta, n); err != nil {
		return nil, err
	}
	return &PublicKeyFile{Metadata: meta, Key: pk}, nil
}

// MarshalPrivateCBOR encodes a private key document. Values reduced modulo p,
// q, p^2, q^2, n or n^2 are padded to the byte length of that modulus.
func MarshalPrivateCBOR(f *PrivateKeyFile) ([]byte, error) {
	sk := f.Key
	p, q, n := sk.P(), sk.Q(), sk.N()
	pSquared, qSquared, nSquared := sk.PSquared(), sk.QSquared(), sk.NSquared()
	pLen, qLen, nLen := byteLen(p), byteLen(q), byteLen(n)

	raw := rawPrivateKey{
		Header:    newRawHeader(KindPrivateKey, f.Metadata),
		P:         fixed(p, pLen),
		Q:         fixed(q, qLen),
		PSquared:  fixed(pSquared, byteLen(pSquared)),
		QSquared:  fixed(qSquared, byteLen(qSquared)),
		N:         fixed(n, nLen),
		NSquared:  fixed(nSquared, byteLen(nSquared)),
		PMinusOne: fixed(sk.PMinusOne(), pLen),
		QMinusOne: fixed(sk.QMinusOne(), qLen),
		Phi:       fixed(sk.Phi(), nLen),
		DN:        fixed(sk.DN(), nLen),
		DP:        fixed(sk.DP(), pLen),
		DQ:        fixed(sk.DQ(), qLen),
		PInv:      fixed(sk.PInv(), qLen),
		HP:        fixed(sk.HP(), pLen),
		HQ:        fixed(sk.HQ(), qLen),
		Mu:        fixed(sk.Mu(), nLen),
	}
	defer raw.zeroize()
	return cbor.Marshal(raw)
}

// UnmarshalPrivateCBOR decodes a private key document. Only p and q are
// required; any other stored value must match the one derived from them.
func UnmarshalPrivateCBOR(data []byte) (*PrivateKeyFile, error) {
	var raw rawPrivateKey
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	defer raw.zeroize()
	if err := checkHeader(raw.Header.Kind, KindPrivateKey, raw.Header.Version); err != nil {
		return nil, err
	}
	meta, err := raw.Header.metadata()
	if err != nil {
		return nil, err
	}

	stored := make(map[string]*big.Int)
	for name, b := range raw.fields() {
		if len(b) > 0 {
			stored[name] = new(big.Int).SetBytes(b)
		}
	}
	sk, err := rebuildPrivate(stored["p"], stored["q"], stored)
	if err != nil {
		return nil, err
	}
	if err := checkBits(meta, sk.N()); err != nil {
		sk.Zeroize()
		return nil, err
	}
	return &PrivateKeyFile{Metadata: meta, Key: sk}, nil
}

func (r *rawPrivateKey) fields() map[string][]byte {
	return map[string][]byte{
		"p":           r.P,
		"q":           r.Q,
		"p_sq":        r.PSquared,
		"q_sq":        r.QSquared,
		"n":           r.N,
		"n_sq":        r.NSquared,
		"p_minus_one": r.PMinusOne,
		"q_minus_one": r.QMinusOne,
		"phi":         r.Phi,
		"d_n":         r.DN,
		"d_p":         r.DP,
		"d_q":         r.DQ,
		"p_inv":       r.PInv,
		"h_p":         r.HP,
		"h_q":         r.HQ,
		"mu":          r.Mu,
	}
}

func (r *rawPrivateKey) zeroize() {
	for _, b := range r.fields() {
		paillier.ZeroizeBytes(b)
	}
}
