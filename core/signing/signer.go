package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	PrivKeyFile = "manufacturer_private.pem"
	PubKeyFile  = "manufacturer_public.pem"

	keyBits = 2048
)

// ErrKeyMaterial marks unrecoverable key-material faults. These are fatal
// at startup; no per-call signing path returns them.
var ErrKeyMaterial = errors.New("key material fault")

// Signer holds the deployment's RSA keypair and produces/checks
// signatures over canonical payloads.
type Signer struct {
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
}

// NewSigner loads the PEM keypair from keyDir, generating and persisting
// a fresh one only when no private key exists yet. An existing private
// key is never overwritten: regenerating would invalidate every
// signature issued so far.
func NewSigner(keyDir string) (*Signer, error) {
	privPath := filepath.Join(keyDir, PrivKeyFile)
	pubPath := filepath.Join(keyDir, PubKeyFile)

	if _, err := os.Stat(privPath); err == nil {
		priv, err := loadPrivateKey(privPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyMaterial, err)
		}
		if _, err := os.Stat(pubPath); err != nil {
			// Private half present, public half gone. Refuse to guess.
			return nil, fmt.Errorf("%w: %s exists but %s is missing", ErrKeyMaterial, PrivKeyFile, PubKeyFile)
		}
		pub, err := loadPublicKey(pubPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyMaterial, err)
		}
		return &Signer{priv: priv, pub: pub}, nil
	}

	priv, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: generate keypair: %v", ErrKeyMaterial, err)
	}
	if err := saveKeys(keyDir, priv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMaterial, err)
	}
	return &Signer{priv: priv, pub: &priv.PublicKey}, nil
}

// Sign canonicalizes the payload and signs it with RSA-PSS over SHA-256.
// The signature is randomized; only Verify is deterministic.
func (s *Signer) Sign(payload map[string]interface{}) (string, error) {
	data, err := CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	sig, err := rsa.SignPSS(rand.Reader, s.priv, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether sigB64 is a valid signature over the canonical
// form of payload. Any decode or verification failure is false, never an
// error.
func (s *Signer) Verify(payload map[string]interface{}, sigB64 string) bool {
	data, err := CanonicalJSON(payload)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(data)
	err = rsa.VerifyPSS(s.pub, crypto.SHA256, hash[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	return err == nil
}

// PublicKeyPEM returns the public half in SubjectPublicKeyInfo PEM form,
// for distribution to external verifiers.
func (s *Signer) PublicKeyPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(s.pub)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	blk, _ := pem.Decode(raw)
	if blk == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}
	key, err := x509.ParsePKCS8PrivateKey(blk.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s is not an RSA private key", path)
	}
	return rsaKey, nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	blk, _ := pem.Decode(raw)
	if blk == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}
	key, err := x509.ParsePKIXPublicKey(blk.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s is not an RSA public key", path)
	}
	return rsaPub, nil
}

// saveKeys persists both halves before any signing happens. Private key
// is stored unencrypted PKCS#8 (known hardening gap, kept for
// compatibility with existing deployments).
func saveKeys(keyDir string, priv *rsa.PrivateKey) error {
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return err
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return err
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	if err := os.WriteFile(filepath.Join(keyDir, PrivKeyFile), privPEM, 0o600); err != nil {
		return err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return os.WriteFile(filepath.Join(keyDir, PubKeyFile), pubPEM, 0o644)
}
