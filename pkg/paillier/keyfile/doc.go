// Package keyfile encodes Paillier keys and ciphertexts for storage and
// transport.
//
// Two encodings are supported. JSON documents carry integers as decimal
// strings and are meant to be read by people and other tooling. CBOR
// documents carry integers as fixed-length big-endian byte strings, each
// padded to the width of the modulus it lives under, so the encoded size of
// a key depends only on its bit length.
//
// Every document carries a Metadata envelope with a format version, a UUID
// key identifier, the modulus size and a creation time. Private key documents
// store the full set of precomputed values; decoding re-derives them from p
// and q and rejects documents whose stored values disagree.
//
// # Files
//
//	meta := keyfile.NewMetadata(kp.PublicKey.BitLen())
//	err := keyfile.WritePrivate("alice.key", &keyfile.PrivateKeyFile{Metadata: meta, Key: kp.PrivateKey}, keyfile.FormatJSON)
//	f, err := keyfile.ReadPrivate("alice.key")
//
// Paths are resolved with SecurePath and must stay inside the working
// directory. Private key files are written with mode 0600.
package keyfile
