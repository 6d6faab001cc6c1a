package paillier_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coinbase/cb-paillier-go/pkg/paillier"
	"github.com/coinbase/cb-paillier-go/pkg/paillier/logging"
)

const testKeyBits = 512

var (
	testKeyOnce sync.Once
	testKey     *paillier.KeyPair
	testKeyErr  error
)

// sharedKeyPair returns a 512-bit key pair generated once per test binary.
func sharedKeyPair(t *testing.T) *paillier.KeyPair {
	t.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = paillier.GenerateKeyPair(context.Background(), &paillier.GenerateParams{
			Bits:   testKeyBits,
			Logger: logging.Discard(),
		})
	})
	require.NoError(t, testKeyErr)
	return testKey
}

// toyKey is the key with p = 7 and q = 11.
func toyKey(t *testing.T) *paillier.PrivateKey {
	t.Helper()
	sk, err := paillier.NewPrivateKey(big.NewInt(7), big.NewInt(11))
	require.NoError(t, err)
	return sk
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy source offline")
}

// constReader returns b forever.
type constReader byte

func (c constReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(c)
	}
	return len(p), nil
}

// alternatingReader fills successive reads with a and b in turn.
type alternatingReader struct {
	mu   sync.Mutex
	a, b byte
	flip bool
}

func (r *alternatingReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.a
	if r.flip {
		v = r.b
	}
	r.flip = !r.flip
	for i := range p {
		p[i] = v
	}
	return len(p), nil
}

// cycleReader fills successive reads with each of values in turn and counts
// the reads.
type cycleReader struct {
	mu     sync.Mutex
	values []byte
	reads  int
}

func (r *cycleReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.values[r.reads%len(r.values)]
	r.reads++
	for i := range p {
		p[i] = v
	}
	return len(p), nil
}
