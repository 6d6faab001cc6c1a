package paillier

import (
	"context"
	"io"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coinbase/cb-paillier-go/pkg/paillier/logging"
)

const (
	// DefaultKeyBits is the modulus size used when GenerateParams.Bits is zero.
	DefaultKeyBits = 2048

	// MinKeyBits is the smallest accepted modulus size. It is far too small
	// for real use and exists for tests and toy vectors.
	MinKeyBits = 16

	// maxDistinctRetries bounds resampling of q when it collides with p.
	maxDistinctRetries = 64
)

// GenerateParams configures GenerateKeyPair. The zero value generates a
// DefaultKeyBits key from crypto/rand.Reader.
type GenerateParams struct {
	// Bits is the modulus size. It must be even and at least MinKeyBits.
	Bits int

	// Random supplies candidate bytes. Nil selects crypto/rand.Reader.
	Random io.Reader

	// PrimalityRounds is the Miller-Rabin round count, raised to
	// MinPrimalityRounds when lower. Zero selects DefaultPrimalityRounds.
	PrimalityRounds int

	// MaxPrimeAttempts bounds the candidates tried per prime. Zero selects
	// DefaultMaxPrimeAttempts(Bits/2).
	MaxPrimeAttempts int

	// Sequential samples p then q on the calling goroutine. Set it when
	// Random is deterministic and the generated key must be reproducible.
	Sequential bool

	// Logger receives debug records about the run. Nil logs to slog.Default().
	Logger logging.Logger
}

func (params *GenerateParams) withDefaults() GenerateParams {
	var cfg GenerateParams
	if params != nil {
		cfg = *params
	}
	if cfg.Bits == 0 {
		cfg.Bits = DefaultKeyBits
	}
	if cfg.PrimalityRounds == 0 {
		cfg.PrimalityRounds = DefaultPrimalityRounds
	}
	if cfg.MaxPrimeAttempts == 0 {
		cfg.MaxPrimeAttempts = DefaultMaxPrimeAttempts(cfg.Bits / 2)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New(nil)
	}
	return cfg
}

// GenerateKeyPair samples two distinct primes of Bits/2 bits each and derives
// a key pair from them. The returned modulus is exactly Bits bits wide.
//
// Failures of the random source, including a source that keeps repeating
// itself, surface as ErrRandomnessUnavailable; cancelling ctx stops the prime
// search and returns ctx.Err().
func GenerateKeyPair(ctx context.Context, params *GenerateParams) (*KeyPair, error) {
	const op = "GenerateKeyPair"

	cfg := params.withDefaults()
	if cfg.Bits < MinKeyBits || cfg.Bits%2 != 0 {
		return nil, opErrorf(op, ErrInvalidKeySize, "modulus size %d must be even and at least %d", cfg.Bits, MinKeyBits)
	}
	logger := cfg.Logger.With("op", op, "bits", cfg.Bits)
	start := time.Now()

	p, q, err := samplePrimePair(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		zeroizeInt(p)
		zeroizeInt(q)
	}()

	retries := 0
	for p.Cmp(q) == 0 {
		if retries >= maxDistinctRetries {
			return nil, opErrorf(op, ErrRandomnessUnavailable, "prime search kept returning the same prime")
		}
		retries++
		logger.Debug(ctx, "prime collision, resampling", "retry", retries)
		zeroizeInt(q)
		if q, err = sampleHalf(ctx, &cfg, cfg.Random); err != nil {
			return nil, err
		}
	}

	sk, err := NewPrivateKey(p, q)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "key pair generated",
		logging.Redacted("p"),
		logging.Redacted("q"),
		"retries", retries,
		"duration", time.Since(start),
	)
	return &KeyPair{PublicKey: sk.PublicKey(), PrivateKey: sk}, nil
}

func sampleHalf(ctx context.Context, cfg *GenerateParams, random io.Reader) (*big.Int, error) {
	return SamplePrime(ctx, random, cfg.Bits/2, cfg.PrimalityRounds, cfg.MaxPrimeAttempts)
}

// samplePrimePair returns two primes of Bits/2 bits, searched concurrently
// unless cfg.Sequential is set.
func samplePrimePair(ctx context.Context, cfg *GenerateParams) (p, q *big.Int, err error) {
	if cfg.Sequential {
		if p, err = sampleHalf(ctx, cfg, cfg.Random); err != nil {
			return nil, nil, err
		}
		if q, err = sampleHalf(ctx, cfg, cfg.Random); err != nil {
			zeroizeInt(p)
			return nil, nil, err
		}
		return p, q, nil
	}

	random := concurrentSource(cfg.Random)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = sampleHalf(gctx, cfg, random)
		return err
	})
	g.Go(func() error {
		var err error
		q, err = sampleHalf(gctx, cfg, random)
		return err
	})
	if err := g.Wait(); err != nil {
		zeroizeInt(p)
		zeroizeInt(q)
		return nil, nil, err
	}
	return p, q, nil
}
