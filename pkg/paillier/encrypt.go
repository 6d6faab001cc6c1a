package paillier

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"
	"golang.org/x/sync/errgroup"
)

// Encrypt encrypts m under pk with a fresh nonce r drawn from random, which
// defaults to crypto/rand.Reader when nil. Encrypting the same plaintext twice
// yields different ciphertexts with overwhelming probability.
func (pk *PublicKey) Encrypt(random io.Reader, m *big.Int) (*big.Int, error) {
	const op = "Encrypt"

	if !pk.plaintextInRange(m) {
		return nil, opError(op, ErrPlaintextOutOfRange)
	}
	r, err := sampleUnit(op, random, pk.n)
	if err != nil {
		return nil, err
	}
	defer zeroizeInt(r)
	return pk.encrypt(m, r), nil
}

// EncryptWithNonce encrypts m with the caller supplied nonce r, which must
// satisfy 0 < r < n. Reusing a nonce across plaintexts leaks their
// difference; this entry point exists for test vectors and nonce recovery
// checks.
func (pk *PublicKey) EncryptWithNonce(m, r *big.Int) (*big.Int, error) {
	const op = "EncryptWithNonce"

	if !pk.plaintextInRange(m) {
		return nil, opError(op, ErrPlaintextOutOfRange)
	}
	if r == nil || r.Sign() <= 0 || r.Cmp(pk.n) >= 0 {
		return nil, opError(op, ErrInvalidNonce)
	}
	return pk.encrypt(m, r), nil
}

// encrypt computes (1 + m*n) * r^n mod n^2. Both m and r are secret, so the
// whole transform runs on saferith values.
func (pk *PublicKey) encrypt(m, r *big.Int) *big.Int {
	nBits := pk.n.BitLen()
	sqBits := pk.nSquared.BitLen()

	n := cloneNat(pk.nNat)

	// m < n keeps 1 + m*n below n^2, so no reduction is needed.
	gm := new(saferith.Nat).Mul(natFromBig(m, nBits), n, sqBits)
	gm.Add(gm, newNatOne(), sqBits)

	rn := new(saferith.Nat).Exp(natFromBig(r, nBits), n, pk.nSquaredMod)
	return rn.ModMul(rn, gm, pk.nSquaredMod).Big()
}

func (pk *PublicKey) plaintextInRange(m *big.Int) bool {
	return m != nil && m.Sign() >= 0 && m.Cmp(pk.n) < 0
}

func (pk *PublicKey) ciphertextInRange(c *big.Int) bool {
	return c != nil && c.Sign() >= 0 && c.Cmp(pk.nSquared) < 0
}

// EncryptBatch encrypts msgs concurrently under pk, running at most limit
// encryptions at once (no limit when limit <= 0). The result is ordered like
// msgs. The first failure cancels the remaining work and is returned with
// the index of the offending message.
func EncryptBatch(ctx context.Context, pk *PublicKey, random io.Reader, msgs []*big.Int, limit int) ([]*big.Int, error) {
	const op = "EncryptBatch"

	if pk == nil {
		return nil, opErrorf(op, ErrInvalidPublicKey, "nil public key")
	}
	for i, m := range msgs {
		if !pk.plaintextInRange(m) {
			return nil, opErrorf(op, ErrPlaintextOutOfRange, "message %d", i)
		}
	}

	random = concurrentSource(random)
	out := make([]*big.Int, len(msgs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, m := range msgs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := pk.Encrypt(random, m)
			if err != nil {
				return fmt.Errorf("message %d: %w", i, err)
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
