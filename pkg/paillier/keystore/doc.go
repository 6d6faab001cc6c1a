// Package keystore keeps Paillier key pairs in a SQLite database.
//
// Public keys are stored in the clear. Private keys are sealed with
// XChaCha20-Poly1305 under a key derived from a caller passphrase with
// PBKDF2-SHA-256; every entry has its own salt and nonce, and the key ID is
// bound into the seal as additional data so sealed blobs cannot be swapped
// between rows.
//
//	store, err := keystore.Open(ctx, "keys.db", nil)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.Put(ctx, file, passphrase)
//	priv, err := store.PrivateKey(ctx, file.ID, passphrase)
package keystore
