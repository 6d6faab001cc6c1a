package paillier_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coinbase/cb-paillier-go/pkg/paillier"
)

func TestNewPrivateKeyToyValues(t *testing.T) {
	sk := toyKey(t)

	tests := []struct {
		name string
		got  *big.Int
		want int64
	}{
		{"p", sk.P(), 7},
		{"q", sk.Q(), 11},
		{"p^2", sk.PSquared(), 49},
		{"q^2", sk.QSquared(), 121},
		{"n", sk.N(), 77},
		{"n^2", sk.NSquared(), 5929},
		{"p-1", sk.PMinusOne(), 6},
		{"q-1", sk.QMinusOne(), 10},
		{"phi", sk.Phi(), 60},
		{"dN", sk.DN(), 53},
		{"dP", sk.DP(), 5},
		{"dQ", sk.DQ(), 3},
		{"pInv", sk.PInv(), 8},
		{"hP", sk.HP(), 5},
		{"hQ", sk.HQ(), 3},
		{"mu", sk.Mu(), 9},
	}
	for _, tc := range tests {
		require.Equal(t, 0, tc.got.Cmp(big.NewInt(tc.want)), "%s = %s, want %d", tc.name, tc.got, tc.want)
	}
	require.Equal(t, 7, sk.BitLen())
	require.Equal(t, 0, sk.PublicKey().N().Cmp(big.NewInt(77)))
	require.Equal(t, 0, sk.PublicKey().NSquared().Cmp(big.NewInt(5929)))
}

func TestNewPrivateKeyOrdersFactors(t *testing.T) {
	sk, err := paillier.NewPrivateKey(big.NewInt(11), big.NewInt(7))
	require.NoError(t, err)
	require.Equal(t, int64(7), sk.P().Int64())
	require.Equal(t, int64(11), sk.Q().Int64())
	require.True(t, sk.PublicKey().Equal(toyKey(t).PublicKey()))
}

func TestNewPrivateKeyRejectsBadFactors(t *testing.T) {
	tests := []struct {
		name string
		p, q *big.Int
	}{
		{"nil p", nil, big.NewInt(11)},
		{"nil q", big.NewInt(7), nil},
		{"equal", big.NewInt(7), big.NewInt(7)},
		{"composite", big.NewInt(9), big.NewInt(11)},
		{"even prime", big.NewInt(2), big.NewInt(11)},
		{"negative", big.NewInt(-7), big.NewInt(11)},
		{"no inverse of n mod phi", big.NewInt(3), big.NewInt(7)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sk, err := paillier.NewPrivateKey(tc.p, tc.q)
			require.Nil(t, sk)
			require.ErrorIs(t, err, paillier.ErrKeyGeneration)

			var opErr *paillier.Error
			require.True(t, errors.As(err, &opErr))
			require.Equal(t, "NewPrivateKey", opErr.Op)
		})
	}
}

func TestNewPrivateKeyDoesNotAlias(t *testing.T) {
	p, q := big.NewInt(7), big.NewInt(11)
	sk, err := paillier.NewPrivateKey(p, q)
	require.NoError(t, err)

	p.SetInt64(13)
	sk.P().SetInt64(17)
	require.Equal(t, int64(7), sk.P().Int64())
}

func TestNewPublicKey(t *testing.T) {
	pk, err := paillier.NewPublicKey(big.NewInt(77))
	require.NoError(t, err)
	require.Equal(t, int64(5929), pk.NSquared().Int64())
	require.Equal(t, 7, pk.BitLen())
	require.True(t, pk.Equal(toyKey(t).PublicKey()))

	other, err := paillier.NewPublicKey(big.NewInt(143))
	require.NoError(t, err)
	require.False(t, pk.Equal(other))
	require.False(t, pk.Equal(nil))

	for _, n := range []*big.Int{nil, big.NewInt(0), big.NewInt(-77), big.NewInt(78), big.NewInt(9)} {
		_, err := paillier.NewPublicKey(n)
		require.ErrorIs(t, err, paillier.ErrInvalidPublicKey, "n=%v", n)
	}
}

func TestKeyStringHidesFactors(t *testing.T) {
	sk := toyKey(t)
	require.Equal(t, "PrivateKey{bits=7}", sk.String())
	require.Equal(t, "PublicKey{bits=7}", sk.PublicKey().String())
}

func TestZeroize(t *testing.T) {
	sk := toyKey(t)
	pk := sk.PublicKey()

	sk.Zeroize()
	require.Equal(t, 0, sk.P().Sign())
	require.Equal(t, 0, sk.Phi().Sign())

	_, err := sk.Decrypt(big.NewInt(16))
	require.ErrorIs(t, err, paillier.ErrKeyZeroized)
	_, err = sk.DecryptDirect(big.NewInt(16))
	require.ErrorIs(t, err, paillier.ErrKeyZeroized)
	_, _, err = sk.Open(big.NewInt(16))
	require.ErrorIs(t, err, paillier.ErrKeyZeroized)

	c, err := pk.EncryptWithNonce(big.NewInt(5), big.NewInt(4))
	require.NoError(t, err)
	require.Equal(t, int64(16), c.Int64())

	sk.Zeroize()
	var nilKey *paillier.PrivateKey
	nilKey.Zeroize()
}

func TestZeroizeBytes(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	paillier.ZeroizeBytes(buf)
	require.Equal(t, []byte{0, 0, 0, 0}, buf)
}

func TestErrorFormat(t *testing.T) {
	err := &paillier.Error{Op: "Decrypt", Err: paillier.ErrCiphertextOutOfRange}
	require.Equal(t, "paillier.Decrypt: paillier: ciphertext out of range", err.Error())
	require.ErrorIs(t, err, paillier.ErrCiphertextOutOfRange)
}
