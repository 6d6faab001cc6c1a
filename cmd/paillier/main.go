// Command paillier generates Paillier keys and encrypts and decrypts integers
// with them.
//
//	paillier [-config file] <command> [flags]
//
// Keys live either in key files (JSON or CBOR) or in a SQLite key store whose
// private keys are sealed under a passphrase read from an environment
// variable.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/coinbase/cb-paillier-go/internal/config"
	"github.com/coinbase/cb-paillier-go/pkg/paillier"
	"github.com/coinbase/cb-paillier-go/pkg/paillier/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

// errUsage marks errors already reported by a flag set.
var errUsage = errors.New("usage error")

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, app *app, args []string) error
}

var commands = []command{
	{"keygen", "generate a key pair", runKeygen},
	{"encrypt", "encrypt an integer under a public key", runEncrypt},
	{"decrypt", "decrypt a ciphertext document", runDecrypt},
	{"inspect", "describe a key or ciphertext file without revealing secrets", runInspect},
	{"list", "list keys in the key store", runList},
	{"delete", "delete a key from the key store", runDelete},
	{"version", "print the version", runVersion},
}

type app struct {
	cfg    *config.Config
	logger logging.Logger
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	global := flag.NewFlagSet("paillier", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", getenv("PAILLIER_CONFIG"), "TOML config `file`")
	global.Usage = func() { usage(stderr, global) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr, global)
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(stderr, "paillier: %v\n", err)
			return 1
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		fmt.Fprintf(stderr, "paillier: %v\n", err)
		return 1
	}
	logger, err := cfg.Logger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "paillier: %v\n", err)
		return 1
	}

	a := &app{cfg: cfg, logger: logger, stdout: stdout, stderr: stderr, getenv: getenv}
	for _, cmd := range commands {
		if cmd.name != rest[0] {
			continue
		}
		err := cmd.run(ctx, a, rest[1:])
		switch {
		case err == nil:
			return 0
		case errors.Is(err, flag.ErrHelp):
			return 0
		case errors.Is(err, errUsage):
			return 2
		default:
			logger.Error(ctx, "command failed", "command", cmd.name, "error", err)
			return 1
		}
	}
	fmt.Fprintf(stderr, "paillier: unknown command %q\n", rest[0])
	usage(stderr, global)
	return 2
}

func usage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "usage: paillier [-config file] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w)
	global.PrintDefaults()
}

// newFlagSet returns a flag set that reports errors to a's stderr.
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("paillier "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		return errUsage
	}
	return nil
}

func runVersion(_ context.Context, a *app, args []string) error {
	if err := parseFlags(a.newFlagSet("version"), args); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "paillier %s\n", paillier.LibraryVersion())
	return nil
}
