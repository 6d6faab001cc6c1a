package internalcheck

import (
	"testing"

	"golang.org/x/tools/go/packages"
)

const (
	modulePath  = "github.com/coinbase/cb-paillier-go"
	loggingPath = modulePath + "/pkg/paillier/logging"
)

// loadPackages type-checks every non-test package under pkg/paillier.
func loadPackages(t *testing.T) []*packages.Package {
	t.Helper()
	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedFiles | packages.NeedName,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/pkg/paillier/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		t.Fatalf("packages contain errors")
	}
	if len(pkgs) < 4 {
		t.Fatalf("loaded %d packages, want at least 4", len(pkgs))
	}
	return pkgs
}
