package keyfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/coinbase/cb-paillier-go/pkg/paillier"
)

// Format selects a document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps "json" and "cbor" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return 0, fmt.Errorf("unknown key format %q", s)
	}
}

// DetectFormat reports JSON for data whose first non-space byte is '{' and
// CBOR otherwise.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatCBOR
}

// Kind returns the document kind recorded in data.
func Kind(data []byte) (string, error) {
	if DetectFormat(data) == FormatJSON {
		var h struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(data, &h); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return h.Kind, nil
	}
	var h struct {
		Header struct {
			Kind string `cbor:"kind"`
		} `cbor:"header"`
	}
	if err := cbor.Unmarshal(data, &h); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return h.Header.Kind, nil
}

// MarshalPublic encodes f in the given format.
func MarshalPublic(f *PublicKeyFile, format Format) ([]byte, error) {
	if format == FormatCBOR {
		return MarshalPublicCBOR(f)
	}
	return MarshalPublicJSON(f)
}

// MarshalPrivate encodes f in the given format.
func MarshalPrivate(f *PrivateKeyFile, format Format) ([]byte, error) {
	if format == FormatCBOR {
		return MarshalPrivateCBOR(f)
	}
	return MarshalPrivateJSON(f)
}

// UnmarshalPublic decodes a public key document in either format. A private
// key document is accepted and reduced to its public half.
func UnmarshalPublic(data []byte) (*PublicKeyFile, error) {
	kind, err := Kind(data)
	if err != nil {
		return nil, err
	}
	if kind == KindPrivateKey {
		f, err := UnmarshalPrivate(data)
		if err != nil {
			return nil, err
		}
		pub := f.Public()
		f.Key.Zeroize()
		return pub, nil
	}
	if DetectFormat(data) == FormatJSON {
		return UnmarshalPublicJSON(data)
	}
	return UnmarshalPublicCBOR(data)
}

// UnmarshalPrivate decodes a private key document in either format.
func UnmarshalPrivate(data []byte) (*PrivateKeyFile, error) {
	if DetectFormat(data) == FormatJSON {
		return UnmarshalPrivateJSON(data)
	}
	return UnmarshalPrivateCBOR(data)
}

// WritePublic writes f to path with mode 0644.
func WritePublic(path string, f *PublicKeyFile, format Format) error {
	data, err := MarshalPublic(f, format)
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}
	return writeFile(path, data, 0o644)
}

// WritePrivate writes f to path with mode 0600.
func WritePrivate(path string, f *PrivateKeyFile, format Format) error {
	data, err := MarshalPrivate(f, format)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}
	defer paillier.ZeroizeBytes(data)
	return writeFile(path, data, 0o600)
}

// ReadPublic reads a public key from path. A private key file is accepted and
// reduced to its public half.
func ReadPublic(path string) (*PublicKeyFile, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalPublic(data)
}

// ReadPrivate reads a private key from path.
func ReadPrivate(path string) (*PrivateKeyFile, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	defer paillier.ZeroizeBytes(data)
	return UnmarshalPrivate(data)
}

// WriteCiphertext writes ct to path as JSON.
func WriteCiphertext(path string, ct *Ciphertext) error {
	data, err := MarshalCiphertext(ct)
	if err != nil {
		return err
	}
	return writeFile(path, data, 0o644)
}

// ReadCiphertext reads a JSON ciphertext document from path.
func ReadCiphertext(path string) (*Ciphertext, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalCiphertext(data)
}

func readFile(path string) ([]byte, error) {
	absPath, err := SecurePath(path)
	if err != nil {
		return nil, fmt.Errorf("secure path: %w", err)
	}
	data, err := os.ReadFile(absPath) // #nosec G304 -- absPath validated by SecurePath
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	absPath, err := SecurePath(path)
	if err != nil {
		return fmt.Errorf("secure path: %w", err)
	}
	f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm) // #nosec G304 -- absPath validated by SecurePath
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		return fmt.Errorf("chmod file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// SecurePath validates that a file path doesn't escape the working directory
// and returns its absolute form.
func SecurePath(path string) (string, error) {
	clean := filepath.Clean(path)
	absPath, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	base, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	rel, err := filepath.Rel(base, absPath)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes working directory", path)
	}
	return absPath, nil
}
