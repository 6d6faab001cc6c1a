package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/coinbase/cb-paillier-go/pkg/paillier/keyfile"
)

func runInspect(_ context.Context, a *app, args []string) error {
	fs := a.newFlagSet("inspect")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "usage: paillier inspect <file>")
		return errUsage
	}
	path := fs.Arg(0)

	absPath, err := keyfile.SecurePath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(absPath) // #nosec G304 -- absPath validated by SecurePath
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	kind, err := keyfile.Kind(data)
	if err != nil {
		return err
	}
	w := a.stdout
	switch kind {
	case keyfile.KindPublicKey, keyfile.KindPrivateKey:
		pub, err := keyfile.UnmarshalPublic(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "kind:       %s\n", kind)
		fmt.Fprintf(w, "format:     %s\n", keyfile.DetectFormat(data))
		fmt.Fprintf(w, "id:         %s\n", pub.ID)
		fmt.Fprintf(w, "bits:       %d\n", pub.Key.BitLen())
		if !pub.CreatedAt.IsZero() {
			fmt.Fprintf(w, "created_at: %s\n", pub.CreatedAt.Format(time.RFC3339))
		}
	case keyfile.KindCiphertext:
		ct, err := keyfile.UnmarshalCiphertext(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "kind:       %s\n", kind)
		fmt.Fprintf(w, "key_id:     %s\n", ct.KeyID)
		fmt.Fprintf(w, "c_bits:     %d\n", ct.C.BitLen())
	default:
		return fmt.Errorf("%w: unknown kind %q", keyfile.ErrInvalidDocument, kind)
	}
	return nil
}
