package paillier

import (
	"math/big"

	"github.com/cronokirby/saferith"
)

// Decrypt recovers the plaintext of c using the CRT split over p^2 and q^2.
// c must lie in [0, n^2). A ciphertext produced under a different key decrypts
// to an unrelated value in [0, n) without error.
func (sk *PrivateKey) Decrypt(c *big.Int) (*big.Int, error) {
	const op = "Decrypt"

	cNat, err := sk.ciphertext(op, c)
	if err != nil {
		return nil, err
	}
	return sk.decryptCRT(cNat).Big(), nil
}

// DecryptDirect recovers the plaintext of c without CRT as
// L(c^phi mod n^2, n) * phi^-1 mod n. It agrees with Decrypt and is several
// times slower.
func (sk *PrivateKey) DecryptDirect(c *big.Int) (*big.Int, error) {
	const op = "DecryptDirect"

	cNat, err := sk.ciphertext(op, c)
	if err != nil {
		return nil, err
	}
	sqBits := sk.nSquared.BitLen()
	nBits := sk.n.BitLen()

	x := new(saferith.Nat).Exp(cNat, cloneNat(sk.phiNat), sk.pub.nSquaredMod)
	l := new(saferith.Nat).Sub(x, newNatOne(), sqBits)
	l.Div(l, sk.nMod, nBits)
	return l.ModMul(l, cloneNat(sk.muNat), sk.nMod).Big(), nil
}

// Open recovers both the plaintext m and the nonce r used to produce c, so
// that EncryptWithNonce(m, r) reproduces c. The nonce is the n-th root of
// c*(1 - m*n) mod n^2, taken modulo p and q with the exponents dP and dQ.
func (sk *PrivateKey) Open(c *big.Int) (m, r *big.Int, err error) {
	const op = "Open"

	cNat, err := sk.ciphertext(op, c)
	if err != nil {
		return nil, nil, err
	}
	mNat := sk.decryptCRT(cNat)

	nSquaredMod := sk.pub.nSquaredMod
	mn := new(saferith.Nat).Mul(mNat, cloneNat(sk.pub.nNat), sk.nSquared.BitLen())
	unmask := new(saferith.Nat).ModSub(newNatOne(), mn, nSquaredMod)
	rn := new(saferith.Nat).ModMul(cNat, unmask, nSquaredMod)

	rp := new(saferith.Nat).Exp(rn, cloneNat(sk.dPNat), sk.pMod)
	rq := new(saferith.Nat).Exp(rn, cloneNat(sk.dQNat), sk.qMod)
	return mNat.Big(), sk.recombine(rp, rq).Big(), nil
}

func (sk *PrivateKey) ciphertext(op string, c *big.Int) (*saferith.Nat, error) {
	if sk.zeroized() {
		return nil, opError(op, ErrKeyZeroized)
	}
	if !sk.pub.ciphertextInRange(c) {
		return nil, opError(op, ErrCiphertextOutOfRange)
	}
	return natFromBig(c, sk.nSquared.BitLen()), nil
}

// decryptCRT computes m mod p and m mod q from c and joins them.
func (sk *PrivateKey) decryptCRT(c *saferith.Nat) *saferith.Nat {
	mp := decryptModPrime(c, cloneNat(sk.pMinusOneNat), sk.pSquaredMod, sk.pMod, cloneNat(sk.hPNat))
	mq := decryptModPrime(c, cloneNat(sk.qMinusOneNat), sk.qSquaredMod, sk.qMod, cloneNat(sk.hQNat))
	return sk.recombine(mp, mq)
}

// decryptModPrime returns L(c^(r-1) mod r^2, r) * h mod r. Every operand must
// be owned by the caller.
func decryptModPrime(c, rMinusOne *saferith.Nat, rSquared, r *saferith.Modulus, h *saferith.Nat) *saferith.Nat {
	d := new(saferith.Nat).Exp(c, rMinusOne, rSquared)
	d.Sub(d, newNatOne(), rSquared.BitLen())
	d.Div(d, r, r.BitLen())
	return d.ModMul(d, h, r)
}

// recombine returns the unique x in [0, n) with x = xp mod p and x = xq mod q
// (Garner's formula with p < q).
func (sk *PrivateKey) recombine(xp, xq *saferith.Nat) *saferith.Nat {
	u := new(saferith.Nat).ModSub(xq, xp, sk.qMod)
	u.ModMul(u, cloneNat(sk.pInvNat), sk.qMod)

	nBits := sk.n.BitLen()
	x := new(saferith.Nat).Mul(u, cloneNat(sk.pNat), nBits)
	return x.Add(x, xp, nBits)
}
