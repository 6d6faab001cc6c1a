package paillier

import (
	"math/big"
	"runtime"
)

// ZeroizeBytes overwrites buf with zeros and keeps the store alive past the
// last use of buf (golang/go#33325). Copies made by math/big or the garbage
// collector are out of reach, so this is best effort.
func ZeroizeBytes(buf []byte) {
	zeroizeBytes(buf)
}

func zeroizeBytes(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	runtime.KeepAlive(buf)
}

// zeroizeInt clears the limbs backing x and resets it to zero.
func zeroizeInt(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	runtime.KeepAlive(words)
	x.SetInt64(0)
}

// Zeroize overwrites the secret values held by sk and releases its
// constant-time mirrors. Later calls to Decrypt, DecryptDirect and Open fail
// with ErrKeyZeroized. Zeroize must not run concurrently with other methods on
// sk. The public key returned by PublicKey stays usable.
func (sk *PrivateKey) Zeroize() {
	if sk == nil {
		return
	}
	for _, x := range []*big.Int{
		sk.p, sk.q, sk.pSquared, sk.qSquared,
		sk.pMinusOne, sk.qMinusOne, sk.phi,
		sk.dN, sk.dP, sk.dQ, sk.pInv, sk.hP, sk.hQ, sk.mu,
	} {
		zeroizeInt(x)
	}
	sk.pMod, sk.qMod, sk.nMod = nil, nil, nil
	sk.pSquaredMod, sk.qSquaredMod = nil, nil
	sk.pNat = nil
	sk.pMinusOneNat, sk.qMinusOneNat = nil, nil
	sk.hPNat, sk.hQNat, sk.pInvNat = nil, nil, nil
	sk.dPNat, sk.dQNat = nil, nil
	sk.phiNat, sk.muNat = nil, nil
}

func (sk *PrivateKey) zeroized() bool {
	return sk.pMod == nil
}
