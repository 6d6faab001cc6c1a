package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/coinbase/cb-paillier-go/pkg/paillier"
	"github.com/coinbase/cb-paillier-go/pkg/paillier/keyfile"
	"github.com/coinbase/cb-paillier-go/pkg/paillier/keystore"
)

const defaultPassphraseEnv = "PAILLIER_PASSPHRASE"

func runKeygen(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("keygen")
	bits := fs.Int("bits", 0, "modulus size in bits (default from config)")
	format := fs.String("format", a.cfg.Keys.Format, "key file format: json or cbor")
	out := fs.String("out", "paillier.key", "private key `file`; empty skips the file")
	pubOut := fs.String("pub", "", "public key `file` (default <out>.pub)")
	store := fs.Bool("store", false, "also put the key pair into the key store")
	passEnv := fs.String("passphrase-env", defaultPassphraseEnv, "environment `variable` holding the key store passphrase")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	keyFormat, err := keyfile.ParseFormat(*format)
	if err != nil {
		return err
	}
	if *out == "" && !*store {
		return errors.New("nothing to do: set -out or -store")
	}
	var passphrase []byte
	if *store {
		if passphrase, err = a.passphrase(*passEnv); err != nil {
			return err
		}
	}

	start := time.Now()
	kp, err := paillier.GenerateKeyPair(ctx, a.cfg.GenerateParams(*bits, a.logger))
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}
	defer kp.PrivateKey.Zeroize()
	f := &keyfile.PrivateKeyFile{Metadata: keyfile.NewMetadata(kp.PublicKey.BitLen()), Key: kp.PrivateKey}

	// The store is written first so a failing Put leaves no key files behind.
	if *store {
		if err := a.withStore(ctx, func(s *keystore.Store) error {
			return s.Put(ctx, f, passphrase)
		}); err != nil {
			return err
		}
	}
	if *out != "" {
		pubPath := *pubOut
		if pubPath == "" {
			pubPath = *out + ".pub"
		}
		if err := writeKeyFiles(f, *out, pubPath, keyFormat); err != nil {
			if *store {
				if derr := a.withStore(ctx, func(s *keystore.Store) error {
					return s.Delete(ctx, f.ID)
				}); derr != nil {
					a.logger.Warn(ctx, "remove stored key after failed write", "id", f.ID.String(), "error", derr)
				}
			}
			return err
		}
	}

	a.logger.Info(ctx, "key pair generated", "id", f.ID.String(), "bits", f.Bits, "duration", time.Since(start))
	fmt.Fprintln(a.stdout, f.ID)
	return nil
}

// writeKeyFiles writes both halves of f, removing anything written when either
// write fails.
func writeKeyFiles(f *keyfile.PrivateKeyFile, privPath, pubPath string, format keyfile.Format) error {
	if err := keyfile.WritePrivate(privPath, f, format); err != nil {
		return err
	}
	if err := keyfile.WritePublic(pubPath, f.Public(), format); err != nil {
		_ = os.Remove(privPath)
		return err
	}
	return nil
}

func runEncrypt(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("encrypt")
	pubPath := fs.String("pub", "", "public (or private) key `file`")
	id := fs.String("id", "", "key store `id` of the public key")
	message := fs.String("m", "", "plaintext as a decimal integer")
	out := fs.String("out", "", "ciphertext `file` (default stdout)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	m, ok := new(big.Int).SetString(*message, 10)
	if !ok {
		return fmt.Errorf("-m %q is not a decimal integer", *message)
	}

	var pub *keyfile.PublicKeyFile
	switch {
	case *pubPath != "" && *id != "":
		return errors.New("set only one of -pub and -id")
	case *pubPath != "":
		var err error
		if pub, err = keyfile.ReadPublic(*pubPath); err != nil {
			return err
		}
	case *id != "":
		keyID, err := uuid.Parse(*id)
		if err != nil {
			return fmt.Errorf("-id: %w", err)
		}
		if err := a.withStore(ctx, func(s *keystore.Store) error {
			pub, err = s.PublicKey(ctx, keyID)
			return err
		}); err != nil {
			return err
		}
	default:
		return errors.New("one of -pub or -id is required")
	}

	ct, err := pub.Encrypt(m)
	if err != nil {
		return err
	}
	if *out != "" {
		return keyfile.WriteCiphertext(*out, ct)
	}
	data, err := keyfile.MarshalCiphertext(ct)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, string(data))
	return nil
}

func runDecrypt(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("decrypt")
	keyPath := fs.String("key", "", "private key `file`")
	useStore := fs.Bool("store", false, "look the private key up in the key store by the ciphertext key id")
	passEnv := fs.String("passphrase-env", defaultPassphraseEnv, "environment `variable` holding the key store passphrase")
	in := fs.String("in", "", "ciphertext `file`")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}
	ct, err := keyfile.ReadCiphertext(*in)
	if err != nil {
		return err
	}

	var priv *keyfile.PrivateKeyFile
	switch {
	case *keyPath != "" && *useStore:
		return errors.New("set only one of -key and -store")
	case *keyPath != "":
		if priv, err = keyfile.ReadPrivate(*keyPath); err != nil {
			return err
		}
	case *useStore:
		passphrase, err := a.passphrase(*passEnv)
		if err != nil {
			return err
		}
		if err := a.withStore(ctx, func(s *keystore.Store) error {
			priv, err = s.PrivateKey(ctx, ct.KeyID, passphrase)
			return err
		}); err != nil {
			return err
		}
	default:
		return errors.New("one of -key or -store is required")
	}
	defer priv.Key.Zeroize()

	m, err := priv.Decrypt(ct)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, m.String())
	return nil
}

func runList(ctx context.Context, a *app, args []string) error {
	if err := parseFlags(a.newFlagSet("list"), args); err != nil {
		return err
	}
	return a.withStore(ctx, func(s *keystore.Store) error {
		entries, err := s.List(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(a.stdout, "%s\t%d\t%s\n", e.ID, e.Bits, e.CreatedAt.Format(time.RFC3339))
		}
		return nil
	})
}

func runDelete(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("delete")
	id := fs.String("id", "", "key store `id` to delete")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	keyID, err := uuid.Parse(*id)
	if err != nil {
		return fmt.Errorf("-id: %w", err)
	}
	return a.withStore(ctx, func(s *keystore.Store) error {
		return s.Delete(ctx, keyID)
	})
}

func (a *app) withStore(ctx context.Context, fn func(*keystore.Store) error) error {
	s, err := keystore.Open(ctx, a.cfg.Keystore.Path, a.cfg.KeystoreOptions(a.logger))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			a.logger.Warn(ctx, "close key store", "error", cerr)
		}
	}()
	return fn(s)
}

func (a *app) passphrase(name string) ([]byte, error) {
	v := a.getenv(name)
	if v == "" {
		return nil, fmt.Errorf("key store passphrase: environment variable %s is empty", name)
	}
	return []byte(v), nil
}
