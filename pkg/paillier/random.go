package paillier

import (
	"crypto/rand"
	"io"
	"math/big"
	"sync"
)

// maxNonceAttempts bounds rejection sampling below n. Each draw succeeds with
// probability above 1/2, so reaching the bound means the source is broken.
const maxNonceAttempts = 256

// lockedReader serializes reads from a reader that may not be safe for
// concurrent use.
type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Read(p)
}

// randomSource returns crypto/rand.Reader when random is nil.
func randomSource(random io.Reader) io.Reader {
	if random == nil {
		return rand.Reader
	}
	return random
}

// concurrentSource returns a reader safe to share between goroutines.
func concurrentSource(random io.Reader) io.Reader {
	random = randomSource(random)
	if random == rand.Reader {
		return random
	}
	if _, ok := random.(*lockedReader); ok {
		return random
	}
	return &lockedReader{r: random}
}

// randomBits fills buf from random and clears the bits above width.
func randomBits(random io.Reader, buf []byte, width int) error {
	if _, err := io.ReadFull(random, buf); err != nil {
		return err
	}
	if excess := len(buf)*8 - width; excess > 0 {
		buf[0] &= byte(0xff >> uint(excess))
	}
	return nil
}

// sampleUnit draws r uniformly from the units of Z_n by rejection: candidates
// of n's bit length are discarded until 0 < r < n and gcd(r, n) = 1.
func sampleUnit(op string, random io.Reader, n *big.Int) (*big.Int, error) {
	random = randomSource(random)
	width := n.BitLen()
	buf := make([]byte, (width+7)/8)
	defer zeroizeBytes(buf)

	r := new(big.Int)
	gcd := new(big.Int)
	for i := 0; i < maxNonceAttempts; i++ {
		if err := randomBits(random, buf, width); err != nil {
			return nil, opErrorf(op, ErrRandomnessUnavailable, "read nonce: %v", err)
		}
		r.SetBytes(buf)
		if r.Sign() == 0 || r.Cmp(n) >= 0 {
			continue
		}
		if gcd.GCD(nil, nil, r, n).Cmp(one) != 0 {
			continue
		}
		return r, nil
	}
	return nil, opErrorf(op, ErrRandomnessUnavailable, "no nonce below modulus after %d draws", maxNonceAttempts)
}
