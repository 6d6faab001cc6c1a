package paillier

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeySize indicates the requested modulus size cannot hold two
	// distinct primes of adequate width.
	ErrInvalidKeySize = errors.New("paillier: invalid key size")

	// ErrPlaintextOutOfRange indicates a plaintext outside [0, n).
	ErrPlaintextOutOfRange = errors.New("paillier: plaintext out of range")

	// ErrCiphertextOutOfRange indicates a ciphertext outside [0, n^2).
	ErrCiphertextOutOfRange = errors.New("paillier: ciphertext out of range")

	// ErrKeyGeneration indicates key material that cannot be derived, such as a
	// missing modular inverse. It signals a defect and must not be retried.
	ErrKeyGeneration = errors.New("paillier: key generation failed")

	// ErrRandomnessUnavailable indicates the random source failed or a bounded
	// sampling loop gave up. Callers may retry once entropy is restored.
	ErrRandomnessUnavailable = errors.New("paillier: randomness unavailable")

	// ErrInvalidNonce indicates a caller supplied nonce outside (0, n).
	ErrInvalidNonce = errors.New("paillier: invalid nonce")

	// ErrInvalidPublicKey indicates a modulus that cannot be a Paillier modulus.
	ErrInvalidPublicKey = errors.New("paillier: invalid public key")

	// ErrKeyZeroized indicates use of a private key after Zeroize.
	ErrKeyZeroized = errors.New("paillier: private key zeroized")
)

// Error wraps an underlying error with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("paillier.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// opError wraps sentinel under op, keeping errors.Is(err, sentinel) true.
func opError(op string, sentinel error) error {
	return &Error{Op: op, Err: sentinel}
}

// opErrorf wraps sentinel with extra detail. The format must not reference
// secret values.
func opErrorf(op string, sentinel error, format string, args ...interface{}) error {
	return &Error{
		Op:  op,
		Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	}
}
