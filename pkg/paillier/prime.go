package paillier

import (
	"context"
	"crypto/subtle"
	"io"
	"math/big"
)

const (
	// MinPrimalityRounds is the lowest Miller-Rabin round count accepted.
	MinPrimalityRounds = 30

	// DefaultPrimalityRounds is used when no round count is configured.
	DefaultPrimalityRounds = 40

	// maxRepeatedCandidates is how many consecutive candidates may repeat one
	// of the last recentCandidates before the source is declared stuck.
	maxRepeatedCandidates = 8

	// recentCandidates is the window searched for repeats, which catches
	// sources cycling with a period up to this length.
	recentCandidates = 16
)

// DefaultMaxPrimeAttempts returns the candidate budget for a prime of the given
// width. The expected number of odd candidates is about 0.35*bits, so the
// bound is only reached with a broken source.
func DefaultMaxPrimeAttempts(bits int) int {
	return 100*bits + 1000
}

// SamplePrime returns a random prime of exactly bits bits.
//
// Candidates are read from random, their top two bits and low bit are set,
// and they are tested with ProbablyPrime(rounds). The top two bits make the
// product of two such primes exactly 2*bits wide. Sampling stops with
// ErrRandomnessUnavailable when random fails, keeps cycling through the same
// few candidates, or maxAttempts candidates are rejected; maxAttempts <= 0 selects
// DefaultMaxPrimeAttempts(bits).
func SamplePrime(ctx context.Context, random io.Reader, bits, rounds, maxAttempts int) (*big.Int, error) {
	const op = "SamplePrime"

	if bits < 2 {
		return nil, opErrorf(op, ErrInvalidKeySize, "prime width %d too small", bits)
	}
	if rounds < MinPrimalityRounds {
		rounds = MinPrimalityRounds
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPrimeAttempts(bits)
	}
	random = randomSource(random)

	buf := make([]byte, (bits+7)/8)
	recent := make([][]byte, recentCandidates)
	for i := range recent {
		recent[i] = make([]byte, len(buf))
	}
	defer func() {
		zeroizeBytes(buf)
		for _, r := range recent {
			zeroizeBytes(r)
		}
	}()

	repeats := 0
	candidate := new(big.Int)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := randomBits(random, buf, bits); err != nil {
			return nil, opErrorf(op, ErrRandomnessUnavailable, "read candidate: %v", err)
		}

		if seenRecently(buf, recent[:min(attempt, recentCandidates)]) {
			repeats++
			if repeats >= maxRepeatedCandidates {
				return nil, opErrorf(op, ErrRandomnessUnavailable, "random source repeated %d recent candidates in a row", repeats)
			}
		} else {
			repeats = 0
		}
		copy(recent[attempt%recentCandidates], buf)

		candidate.SetBytes(buf)
		candidate.SetBit(candidate, bits-1, 1)
		if bits > 2 {
			candidate.SetBit(candidate, bits-2, 1)
		}
		candidate.SetBit(candidate, 0, 1)

		if candidate.ProbablyPrime(rounds) {
			return new(big.Int).Set(candidate), nil
		}
	}
	return nil, opErrorf(op, ErrRandomnessUnavailable, "no prime found in %d candidates", maxAttempts)
}

// seenRecently reports whether buf equals any of recent. Every entry is
// compared so the timing does not depend on which one matches.
func seenRecently(buf []byte, recent [][]byte) bool {
	found := 0
	for _, r := range recent {
		found |= subtle.ConstantTimeCompare(buf, r)
	}
	return found == 1
}
