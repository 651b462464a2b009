package signing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testPayload() map[string]interface{} {
	return map[string]interface{}{
		"batch_no":         "B1",
		"name":             "Paracetamol",
		"manufacturer":     "Acme Pharma",
		"manufacture_date": int64(1700000000),
		"expiry_date":      int64(1800000000),
		"current_owner":    "Acme Pharma",
		"timestamp":        "2024-01-01T00:00:00Z",
	}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	signer, err := NewSigner(t.TempDir())
	require.NoError(t, err)

	payload := testPayload()
	sig, err := signer.Sign(payload)
	require.NoError(t, err)
	require.True(t, signer.Verify(payload, sig), "signature should verify over the same payload")
}

func TestVerifyFailsOnAnyFieldChange(t *testing.T) {
	signer, err := NewSigner(t.TempDir())
	require.NoError(t, err)

	sig, err := signer.Sign(testPayload())
	require.NoError(t, err)

	for field, tampered := range map[string]interface{}{
		"batch_no":         "B2",
		"name":             "Ibuprofen",
		"manufacturer":     "Other Corp",
		"manufacture_date": int64(1700000001),
		"expiry_date":      int64(1800000001),
		"current_owner":    "Distributor X",
		"timestamp":        "2024-01-02T00:00:00Z",
	} {
		payload := testPayload()
		payload[field] = tampered
		require.False(t, signer.Verify(payload, sig), "tampered %s should not verify", field)
	}
}

func TestVerifyFailsOnGarbageSignature(t *testing.T) {
	signer, err := NewSigner(t.TempDir())
	require.NoError(t, err)

	require.False(t, signer.Verify(testPayload(), "not-base64!!!"))
	require.False(t, signer.Verify(testPayload(), ""))
	require.False(t, signer.Verify(testPayload(), "AAAA"))
}

func TestBootstrapIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewSigner(dir)
	require.NoError(t, err)
	sig, err := first.Sign(testPayload())
	require.NoError(t, err)

	// A second startup must load the same pair, not regenerate it.
	second, err := NewSigner(dir)
	require.NoError(t, err)
	require.True(t, second.Verify(testPayload(), sig), "reloaded signer must verify signatures from the first run")
}

func TestBootstrapRefusesPartialKeyMaterial(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSigner(dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, PubKeyFile)))

	_, err = NewSigner(dir)
	require.ErrorIs(t, err, ErrKeyMaterial)

	// The private key must survive the failed start untouched.
	_, statErr := os.Stat(filepath.Join(dir, PrivKeyFile))
	require.NoError(t, statErr)
}

func TestPublicKeyPEM(t *testing.T) {
	signer, err := NewSigner(t.TempDir())
	require.NoError(t, err)

	pemStr, err := signer.PublicKeyPEM()
	require.NoError(t, err)
	require.Contains(t, pemStr, "BEGIN PUBLIC KEY")
}
