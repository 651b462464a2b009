package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const (
	AccountPrivFile = "ledger_account.priv"
	AccountPubFile  = "ledger_account.pub"
)

// Account is the ledger-side signing identity. It is distinct from the
// manufacturer record-signing key: this one pays fees and authorizes
// custody transactions on chain.
type Account struct {
	Address string
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
}

// LoadOrGenerateAccount loads the hex-encoded Ed25519 account keypair
// from keyDir, generating and saving one if not present.
func LoadOrGenerateAccount(keyDir string) (*Account, error) {
	privPath := filepath.Join(keyDir, AccountPrivFile)
	pubPath := filepath.Join(keyDir, AccountPubFile)

	if _, err := os.Stat(privPath); err == nil {
		privHex, err := os.ReadFile(privPath)
		if err != nil {
			return nil, err
		}
		pubHex, err := os.ReadFile(pubPath)
		if err != nil {
			return nil, err
		}
		priv, err := hex.DecodeString(string(privHex))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", AccountPrivFile, err)
		}
		pub, err := hex.DecodeString(string(pubHex))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", AccountPubFile, err)
		}
		if len(priv) != ed25519.PrivateKeySize || len(pub) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid ledger account key size in %s", keyDir)
		}
		return newAccount(ed25519.PublicKey(pub), ed25519.PrivateKey(priv)), nil
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(privPath, []byte(hex.EncodeToString(priv)), 0o600); err != nil {
		return nil, err
	}
	if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(pub)), 0o644); err != nil {
		return nil, err
	}
	return newAccount(pub, priv), nil
}

func newAccount(pub ed25519.PublicKey, priv ed25519.PrivateKey) *Account {
	hash := sha256.Sum256(pub)
	return &Account{
		// Last 20 bytes of the pubkey hash, same derivation the node uses.
		Address: "0x" + hex.EncodeToString(hash[12:]),
		priv:    priv,
		pub:     pub,
	}
}

// Sign signs msg with the account key.
func (a *Account) Sign(msg []byte) []byte {
	return ed25519.Sign(a.priv, msg)
}

// PublicKeyHex returns the hex-encoded public key for inclusion in
// signed transactions.
func (a *Account) PublicKeyHex() string {
	return hex.EncodeToString(a.pub)
}
