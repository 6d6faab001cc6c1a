package paillier

import (
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
)

var (
	one = big.NewInt(1)

	// minModulus is the smallest product of two distinct odd primes.
	minModulus = big.NewInt(15)
)

// PublicKey is a Paillier public key with the fixed generator g = n+1.
// It holds no secret material and is immutable once constructed; accessors
// return copies.
type PublicKey struct {
	n        *big.Int
	nSquared *big.Int

	// Constant-time mirrors used by encryption. saferith resizes operands in
	// place, so operations work on cloneNat copies and never on these.
	nNat        *saferith.Nat
	nSquaredMod *saferith.Modulus
}

// NewPublicKey creates a public key from the modulus n.
func NewPublicKey(n *big.Int) (*PublicKey, error) {
	if n == nil || n.Cmp(minModulus) < 0 || n.Bit(0) == 0 {
		return nil, opError("NewPublicKey", ErrInvalidPublicKey)
	}
	return newPublicKey(new(big.Int).Set(n)), nil
}

func newPublicKey(n *big.Int) *PublicKey {
	nSquared := new(big.Int).Mul(n, n)
	return &PublicKey{
		n:           n,
		nSquared:    nSquared,
		nNat:        natFromBig(n, n.BitLen()),
		nSquaredMod: modulusFromBig(nSquared),
	}
}

// N returns the modulus n = p*q.
func (pk *PublicKey) N() *big.Int {
	return new(big.Int).Set(pk.n)
}

// NSquared returns n^2, the ciphertext modulus.
func (pk *PublicKey) NSquared() *big.Int {
	return new(big.Int).Set(pk.nSquared)
}

// BitLen returns the bit length of n.
func (pk *PublicKey) BitLen() int {
	return pk.n.BitLen()
}

// Equal reports whether both keys share the same modulus.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	if pk == nil || other == nil {
		return pk == other
	}
	return pk.n.Cmp(other.n) == 0
}

func (pk *PublicKey) String() string {
	return fmt.Sprintf("PublicKey{bits=%d}", pk.n.BitLen())
}

// PrivateKey is a Paillier private key. Every field except p and q is derived
// from p and q by NewPrivateKey and never changes afterwards.
type PrivateKey struct {
	p, q               *big.Int
	pSquared, qSquared *big.Int
	n, nSquared        *big.Int
	pMinusOne          *big.Int
	qMinusOne          *big.Int
	phi                *big.Int // (p-1)(q-1)
	dN                 *big.Int // n^-1 mod phi
	dP, dQ             *big.Int // dN mod (p-1), dN mod (q-1)
	pInv               *big.Int // p^-1 mod q
	hP, hQ             *big.Int // L((1-n) mod r^2, r)^-1 mod r for r in {p, q}
	mu                 *big.Int // phi^-1 mod n

	pub *PublicKey

	// Constant-time mirrors used by decryption. Read only through cloneNat.
	pMod, qMod, nMod           *saferith.Modulus
	pSquaredMod, qSquaredMod   *saferith.Modulus
	pNat                       *saferith.Nat
	pMinusOneNat, qMinusOneNat *saferith.Nat
	hPNat, hQNat, pInvNat      *saferith.Nat
	dPNat, dQNat               *saferith.Nat
	phiNat, muNat              *saferith.Nat
}

// KeyPair is the public and private key produced by one generation run.
type KeyPair struct {
	PublicKey  *PublicKey
	PrivateKey *PrivateKey
}

// NewPrivateKey derives a private key from two distinct odd primes. The primes
// are ordered so that p < q. It fails with ErrKeyGeneration when an input is
// not an odd prime, the primes are equal, or a required inverse does not exist.
func NewPrivateKey(p, q *big.Int) (*PrivateKey, error) {
	const op = "NewPrivateKey"

	if p == nil || q == nil {
		return nil, opErrorf(op, ErrKeyGeneration, "missing prime")
	}
	if !isOddPrime(p) || !isOddPrime(q) {
		return nil, opErrorf(op, ErrKeyGeneration, "factors must be odd primes")
	}
	switch p.Cmp(q) {
	case 0:
		return nil, opErrorf(op, ErrKeyGeneration, "factors must be distinct")
	case 1:
		p, q = q, p
	}

	sk := &PrivateKey{
		p: new(big.Int).Set(p),
		q: new(big.Int).Set(q),
	}
	sk.pSquared = new(big.Int).Mul(sk.p, sk.p)
	sk.qSquared = new(big.Int).Mul(sk.q, sk.q)
	sk.n = new(big.Int).Mul(sk.p, sk.q)
	sk.nSquared = new(big.Int).Mul(sk.n, sk.n)
	sk.pMinusOne = new(big.Int).Sub(sk.p, one)
	sk.qMinusOne = new(big.Int).Sub(sk.q, one)
	sk.phi = new(big.Int).Mul(sk.pMinusOne, sk.qMinusOne)

	sk.dN = new(big.Int).ModInverse(sk.n, sk.phi)
	if sk.dN == nil {
		return nil, opErrorf(op, ErrKeyGeneration, "n has no inverse modulo phi")
	}
	sk.dP = new(big.Int).Mod(sk.dN, sk.pMinusOne)
	sk.dQ = new(big.Int).Mod(sk.dN, sk.qMinusOne)

	sk.pInv = new(big.Int).ModInverse(sk.p, sk.q)
	if sk.pInv == nil {
		return nil, opErrorf(op, ErrKeyGeneration, "p has no inverse modulo q")
	}

	var err error
	if sk.hP, err = hFunction(sk.n, sk.p, sk.pSquared); err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if sk.hQ, err = hFunction(sk.n, sk.q, sk.qSquared); err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	sk.mu = new(big.Int).ModInverse(sk.phi, sk.n)
	if sk.mu == nil {
		return nil, opErrorf(op, ErrKeyGeneration, "phi has no inverse modulo n")
	}

	sk.pub = newPublicKey(new(big.Int).Set(sk.n))
	sk.buildMirrors()
	return sk, nil
}

// hFunction computes the per-prime decryption constant for g = n+1:
// g^(r-1) = 1-n (mod r^2), so h = L((1-n) mod r^2, r)^-1 mod r.
func hFunction(n, r, rSquared *big.Int) (*big.Int, error) {
	gr := new(big.Int).Sub(one, n)
	gr.Mod(gr, rSquared)
	lr := lFunction(gr, r)
	h := new(big.Int).ModInverse(lr, r)
	if h == nil {
		return nil, fmt.Errorf("%w: L value has no inverse modulo a factor", ErrKeyGeneration)
	}
	return h, nil
}

// lFunction is L(u, r) = (u-1)/r, exact when u = 1 (mod r).
func lFunction(u, r *big.Int) *big.Int {
	l := new(big.Int).Sub(u, one)
	return l.Quo(l, r)
}

func isOddPrime(x *big.Int) bool {
	return x.Sign() > 0 && x.Bit(0) == 1 && x.ProbablyPrime(DefaultPrimalityRounds)
}

func (sk *PrivateKey) buildMirrors() {
	pBits, qBits, nBits := sk.p.BitLen(), sk.q.BitLen(), sk.n.BitLen()

	sk.pMod = modulusFromBig(sk.p)
	sk.qMod = modulusFromBig(sk.q)
	sk.pSquaredMod = modulusFromBig(sk.pSquared)
	sk.qSquaredMod = modulusFromBig(sk.qSquared)
	sk.nMod = modulusFromBig(sk.n)

	sk.pNat = natFromBig(sk.p, pBits)
	sk.pMinusOneNat = natFromBig(sk.pMinusOne, pBits)
	sk.qMinusOneNat = natFromBig(sk.qMinusOne, qBits)
	sk.hPNat = natFromBig(sk.hP, pBits)
	sk.hQNat = natFromBig(sk.hQ, qBits)
	sk.pInvNat = natFromBig(sk.pInv, qBits)
	sk.dPNat = natFromBig(sk.dP, pBits)
	sk.dQNat = natFromBig(sk.dQ, qBits)
	sk.phiNat = natFromBig(sk.phi, nBits)
	sk.muNat = natFromBig(sk.mu, nBits)
}

// PublicKey returns the public key matching sk.
func (sk *PrivateKey) PublicKey() *PublicKey {
	return sk.pub
}

// BitLen returns the bit length of n.
func (sk *PrivateKey) BitLen() int {
	return sk.n.BitLen()
}

// P returns the smaller prime factor.
func (sk *PrivateKey) P() *big.Int { return new(big.Int).Set(sk.p) }

// Q returns the larger prime factor.
func (sk *PrivateKey) Q() *big.Int { return new(big.Int).Set(sk.q) }

// PSquared returns p^2.
func (sk *PrivateKey) PSquared() *big.Int { return new(big.Int).Set(sk.pSquared) }

// QSquared returns q^2.
func (sk *PrivateKey) QSquared() *big.Int { return new(big.Int).Set(sk.qSquared) }

// N returns n = p*q.
func (sk *PrivateKey) N() *big.Int { return new(big.Int).Set(sk.n) }

// NSquared returns n^2.
func (sk *PrivateKey) NSquared() *big.Int { return new(big.Int).Set(sk.nSquared) }

// PMinusOne returns p-1.
func (sk *PrivateKey) PMinusOne() *big.Int { return new(big.Int).Set(sk.pMinusOne) }

// QMinusOne returns q-1.
func (sk *PrivateKey) QMinusOne() *big.Int { return new(big.Int).Set(sk.qMinusOne) }

// Phi returns (p-1)(q-1).
func (sk *PrivateKey) Phi() *big.Int { return new(big.Int).Set(sk.phi) }

// DN returns n^-1 mod phi.
func (sk *PrivateKey) DN() *big.Int { return new(big.Int).Set(sk.dN) }

// DP returns dN mod (p-1).
func (sk *PrivateKey) DP() *big.Int { return new(big.Int).Set(sk.dP) }

// DQ returns dN mod (q-1).
func (sk *PrivateKey) DQ() *big.Int { return new(big.Int).Set(sk.dQ) }

// PInv returns p^-1 mod q.
func (sk *PrivateKey) PInv() *big.Int { return new(big.Int).Set(sk.pInv) }

// HP returns the decryption constant for p.
func (sk *PrivateKey) HP() *big.Int { return new(big.Int).Set(sk.hP) }

// HQ returns the decryption constant for q.
func (sk *PrivateKey) HQ() *big.Int { return new(big.Int).Set(sk.hQ) }

// Mu returns phi^-1 mod n.
func (sk *PrivateKey) Mu() *big.Int { return new(big.Int).Set(sk.mu) }

func (sk *PrivateKey) String() string {
	return fmt.Sprintf("PrivateKey{bits=%d}", sk.n.BitLen())
}

func natFromBig(x *big.Int, width int) *saferith.Nat {
	return new(saferith.Nat).SetBig(x, width)
}

// cloneNat returns a private copy of a shared mirror. saferith's Mul, Add and
// Sub grow and mask their operands in place, so a mirror passed to them
// directly would be written by every concurrent caller.
func cloneNat(x *saferith.Nat) *saferith.Nat {
	return new(saferith.Nat).SetNat(x)
}

func newNatOne() *saferith.Nat {
	return new(saferith.Nat).SetUint64(1)
}

func modulusFromBig(x *big.Int) *saferith.Modulus {
	return saferith.ModulusFromNat(natFromBig(x, x.BitLen()))
}
