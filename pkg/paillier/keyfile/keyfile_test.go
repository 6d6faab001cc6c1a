package keyfile_test

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coinbase/cb-paillier-go/pkg/paillier"
	"github.com/coinbase/cb-paillier-go/pkg/paillier/keyfile"
	"github.com/coinbase/cb-paillier-go/pkg/paillier/logging"
)

func generate(t *testing.T, bits int) *keyfile.PrivateKeyFile {
	t.Helper()
	kp, err := paillier.GenerateKeyPair(context.Background(), &paillier.GenerateParams{
		Bits:   bits,
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	return &keyfile.PrivateKeyFile{Metadata: keyfile.NewMetadata(bits), Key: kp.PrivateKey}
}

func toyFile(t *testing.T) *keyfile.PrivateKeyFile {
	t.Helper()
	sk, err := paillier.NewPrivateKey(big.NewInt(7), big.NewInt(11))
	require.NoError(t, err)
	return &keyfile.PrivateKeyFile{Metadata: keyfile.NewMetadata(7), Key: sk}
}

func requireSameKey(t *testing.T, want, got *paillier.PrivateKey) {
	t.Helper()
	pairs := [][2]*big.Int{
		{want.P(), got.P()},
		{want.Q(), got.Q()},
		{want.N(), got.N()},
		{want.DN(), got.DN()},
		{want.HP(), got.HP()},
		{want.HQ(), got.HQ()},
		{want.Mu(), got.Mu()},
	}
	for _, pair := range pairs {
		require.Equal(t, 0, pair[0].Cmp(pair[1]))
	}
}

func requireSameMetadata(t *testing.T, want, got keyfile.Metadata) {
	t.Helper()
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Bits, got.Bits)
	require.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
}

func TestPrivateRoundTrip(t *testing.T) {
	f := generate(t, 256)
	for _, format := range []keyfile.Format{keyfile.FormatJSON, keyfile.FormatCBOR} {
		t.Run(format.String(), func(t *testing.T) {
			data, err := keyfile.MarshalPrivate(f, format)
			require.NoError(t, err)
			require.Equal(t, format, keyfile.DetectFormat(data))

			got, err := keyfile.UnmarshalPrivate(data)
			require.NoError(t, err)
			requireSameMetadata(t, f.Metadata, got.Metadata)
			requireSameKey(t, f.Key, got.Key)
		})
	}
}

func TestPublicRoundTrip(t *testing.T) {
	f := generate(t, 256).Public()
	for _, format := range []keyfile.Format{keyfile.FormatJSON, keyfile.FormatCBOR} {
		data, err := keyfile.MarshalPublic(f, format)
		require.NoError(t, err)

		got, err := keyfile.UnmarshalPublic(data)
		require.NoError(t, err)
		requireSameMetadata(t, f.Metadata, got.Metadata)
		require.True(t, f.Key.Equal(got.Key))
	}
}

func TestUnmarshalPublicAcceptsPrivateDocument(t *testing.T) {
	f := toyFile(t)
	for _, format := range []keyfile.Format{keyfile.FormatJSON, keyfile.FormatCBOR} {
		data, err := keyfile.MarshalPrivate(f, format)
		require.NoError(t, err)

		pub, err := keyfile.UnmarshalPublic(data)
		require.NoError(t, err)
		require.Equal(t, f.ID, pub.ID)
		require.Equal(t, int64(77), pub.Key.N().Int64())
	}
}

func TestPrivateJSONDocument(t *testing.T) {
	data, err := keyfile.MarshalPrivateJSON(toyFile(t))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, keyfile.KindPrivateKey, doc["kind"])
	require.Equal(t, float64(keyfile.Version), doc["version"])

	key := doc["key"].(map[string]any)
	want := map[string]string{
		"p": "7", "q": "11", "n": "77", "n_sq": "5929", "phi": "60",
		"d_n": "53", "d_p": "5", "d_q": "3", "p_inv": "8", "h_p": "5", "h_q": "3", "mu": "9",
	}
	for name, v := range want {
		require.Equal(t, v, key[name], name)
	}
}

func TestPrivateJSONFactorsOnly(t *testing.T) {
	doc := `{"kind":"paillier-private-key","version":1,"id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","bits":7,"key":{"p":"11","q":"7"}}`
	f, err := keyfile.UnmarshalPrivateJSON([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, int64(7), f.Key.P().Int64())
	require.Equal(t, int64(53), f.Key.DN().Int64())
	require.Equal(t, uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), f.ID)
}

func TestPrivateJSONRejectsTampering(t *testing.T) {
	data, err := keyfile.MarshalPrivateJSON(toyFile(t))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	doc["key"].(map[string]any)["h_p"] = "4"
	tampered, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = keyfile.UnmarshalPrivateJSON(tampered)
	require.ErrorIs(t, err, keyfile.ErrInconsistentKey)
	require.Contains(t, err.Error(), "h_p")
}

func TestPrivateJSONRejectsUnknownField(t *testing.T) {
	data, err := keyfile.MarshalPrivateJSON(toyFile(t))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	doc["key"].(map[string]any)["h_r"] = "5"
	extended, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = keyfile.UnmarshalPrivateJSON(extended)
	require.ErrorIs(t, err, keyfile.ErrInvalidDocument)
	require.Contains(t, err.Error(), `"h_r"`)
}

func TestPrivateJSONRejectsBadDocuments(t *testing.T) {
	const id = `"id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8"`
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"not json", `{`, keyfile.ErrInvalidDocument},
		{"wrong kind", `{"kind":"paillier-public-key","version":1,` + id + `,"n":"77"}`, keyfile.ErrInvalidDocument},
		{"no version", `{"kind":"paillier-private-key",` + id + `,"key":{"p":"7","q":"11"}}`, keyfile.ErrInvalidDocument},
		{"future version", `{"kind":"paillier-private-key","version":2,` + id + `,"key":{"p":"7","q":"11"}}`, keyfile.ErrUnsupportedVersion},
		{"missing q", `{"kind":"paillier-private-key","version":1,` + id + `,"key":{"p":"7"}}`, keyfile.ErrInvalidDocument},
		{"hex value", `{"kind":"paillier-private-key","version":1,` + id + `,"key":{"p":"0x7","q":"11"}}`, keyfile.ErrInvalidDocument},
		{"negative", `{"kind":"paillier-private-key","version":1,` + id + `,"key":{"p":"-7","q":"11"}}`, keyfile.ErrInvalidDocument},
		{"composite", `{"kind":"paillier-private-key","version":1,` + id + `,"key":{"p":"9","q":"11"}}`, keyfile.ErrInconsistentKey},
		{"unknown field", `{"kind":"paillier-private-key","version":1,` + id + `,"key":{"p":"7","q":"11","lambda":"30"}}`, keyfile.ErrInvalidDocument},
		{"bits mismatch", `{"kind":"paillier-private-key","version":1,` + id + `,"bits":2048,"key":{"p":"7","q":"11"}}`, keyfile.ErrInvalidDocument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := keyfile.UnmarshalPrivateJSON([]byte(tc.doc))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPublicJSONRejectsBadModulus(t *testing.T) {
	for _, doc := range []string{
		`{"kind":"paillier-public-key","version":1,"n":"78"}`,
		`{"kind":"paillier-public-key","version":1,"n":"77","n_sq":"5928"}`,
		`{"kind":"paillier-public-key","version":1,"n":""}`,
	} {
		_, err := keyfile.UnmarshalPublicJSON([]byte(doc))
		require.ErrorIs(t, err, keyfile.ErrInvalidDocument, doc)
	}
}

func TestPrivateCBORIsFixedWidth(t *testing.T) {
	a, err := keyfile.MarshalPrivateCBOR(generate(t, 256))
	require.NoError(t, err)
	b, err := keyfile.MarshalPrivateCBOR(generate(t, 256))
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
}

func TestPrivateCBORRejectsTampering(t *testing.T) {
	data, err := keyfile.MarshalPrivateCBOR(toyFile(t))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, cbor.Unmarshal(data, &doc))
	doc["mu"] = []byte{10}
	tampered, err := cbor.Marshal(doc)
	require.NoError(t, err)

	_, err = keyfile.UnmarshalPrivateCBOR(tampered)
	require.ErrorIs(t, err, keyfile.ErrInconsistentKey)

	_, err = keyfile.UnmarshalPrivateCBOR([]byte{0xff, 0x00})
	require.ErrorIs(t, err, keyfile.ErrInvalidDocument)
}

func TestFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	f := toyFile(t)

	require.NoError(t, keyfile.WritePrivate("toy.key", f, keyfile.FormatCBOR))
	require.NoError(t, keyfile.WritePublic("toy.pub", f.Public(), keyfile.FormatJSON))

	info, err := os.Stat("toy.key")
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	info, err = os.Stat("toy.pub")
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	priv, err := keyfile.ReadPrivate("toy.key")
	require.NoError(t, err)
	requireSameKey(t, f.Key, priv.Key)

	pub, err := keyfile.ReadPublic("toy.pub")
	require.NoError(t, err)
	require.True(t, f.Key.PublicKey().Equal(pub.Key))

	pub, err = keyfile.ReadPublic("toy.key")
	require.NoError(t, err)
	require.Equal(t, f.ID, pub.ID)

	_, err = keyfile.ReadPrivate("missing.key")
	require.Error(t, err)
}

func TestSecurePath(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := keyfile.SecurePath("keys/alice.key")
	require.NoError(t, err)

	for _, p := range []string{"../alice.key", "keys/../../alice.key", "/etc/passwd"} {
		_, err := keyfile.SecurePath(p)
		require.Error(t, err, p)
	}

	err = keyfile.WritePrivate("../escape.key", toyFile(t), keyfile.FormatJSON)
	require.ErrorContains(t, err, "escapes working directory")
}

func TestCiphertextEnvelope(t *testing.T) {
	t.Chdir(t.TempDir())
	f := generate(t, 256)

	ct, err := f.Public().Encrypt(big.NewInt(31337))
	require.NoError(t, err)
	require.Equal(t, f.ID, ct.KeyID)

	require.NoError(t, keyfile.WriteCiphertext("msg.json", ct))
	got, err := keyfile.ReadCiphertext("msg.json")
	require.NoError(t, err)
	require.Equal(t, 0, ct.C.Cmp(got.C))

	m, err := f.Decrypt(got)
	require.NoError(t, err)
	require.Equal(t, int64(31337), m.Int64())

	other := generate(t, 256)
	_, err = other.Decrypt(got)
	require.ErrorIs(t, err, keyfile.ErrKeyMismatch)

	_, err = keyfile.UnmarshalCiphertext([]byte(`{"kind":"paillier-ciphertext","version":1,"c":"abc"}`))
	require.ErrorIs(t, err, keyfile.ErrInvalidDocument)
}

func TestParseFormat(t *testing.T) {
	f, err := keyfile.ParseFormat("CBOR")
	require.NoError(t, err)
	require.Equal(t, keyfile.FormatCBOR, f)

	f, err = keyfile.ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, keyfile.FormatJSON, f)

	_, err = keyfile.ParseFormat("pem")
	require.Error(t, err)
}
