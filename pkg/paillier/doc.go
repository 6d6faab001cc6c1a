// Package paillier implements the Paillier cryptosystem with the generator
// g = n+1.
//
// Paillier is a probabilistic asymmetric scheme whose ciphertexts are
// additively homomorphic: the product of two ciphertexts modulo n^2 decrypts
// to the sum of their plaintexts modulo n. This package provides key
// generation, encryption and decryption only; it does not expose ciphertext
// arithmetic, range proofs or authenticated encryption.
//
// # Key Operations
//
//   - GenerateKeyPair(): Sample two distinct primes and derive a key pair
//   - NewPrivateKey(): Derive a private key from known primes p and q
//   - NewPublicKey(): Wrap a modulus n received from elsewhere
//   - Encrypt(): Encrypt a plaintext in [0, n) with a fresh nonce
//   - EncryptWithNonce(): Encrypt with a caller supplied nonce
//   - EncryptBatch(): Encrypt many plaintexts concurrently
//   - Decrypt(): Decrypt via the Chinese Remainder Theorem
//   - DecryptDirect(): Decrypt without CRT using phi and mu
//   - Open(): Recover both the plaintext and the nonce of a ciphertext
//
// # Side Channels
//
// Exponentiations and modular products that involve secret values run on
// github.com/cronokirby/saferith, whose operations depend only on the
// announced sizes of their operands. Values cross the API as *big.Int.
//
// # Memory Management
//
// PrivateKey.Zeroize overwrites the secret material held by a key once it is
// no longer needed. Copies made by math/big or the garbage collector are out
// of reach, so zeroization is best effort.
//
// # Usage Example
//
//	kp, err := paillier.GenerateKeyPair(ctx, &paillier.GenerateParams{Bits: 2048})
//	if err != nil {
//	    return err
//	}
//	defer kp.PrivateKey.Zeroize()
//
//	c, err := kp.PublicKey.Encrypt(nil, big.NewInt(42))
//	if err != nil {
//	    return err
//	}
//	m, err := kp.PrivateKey.Decrypt(c)
//	// m is 42
package paillier
