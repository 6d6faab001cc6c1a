// Package internalcheck holds source policy tests for the Paillier packages.
//
// The tests load every package under pkg/paillier with
// golang.org/x/tools/go/packages and reject constructs that tend to leak
// secrets: == on byte slices or arrays (use crypto/subtle), %x formatting in
// fmt and log calls, and big integers passed to the logging facade.
//
// # Internal Use Only
//
// This package has no API and should not be imported.
package internalcheck
