package wallet

import (
	"encoding/hex"

	"github.com/n3-go/n3node/pkg/crypto/keys"
)

// Contract describes the verification script backing an account, as
// recorded in a NEP-6 document.
type Contract struct {
	Script     string   `json:"script"`
	Parameters []string `json:"parameters,omitempty"`
	Deployed   bool     `json:"deployed"`
}

// Account is one NEP-6 account entry: an address, its NEP-2-encrypted
// private key, and the verification contract that address resolves to.
type Account struct {
	Address   string    `json:"address"`
	Label     string    `json:"label,omitempty"`
	IsDefault bool      `json:"isdefault"`
	Lock      bool      `json:"lock"`
	Key       string    `json:"key"`
	Contract  *Contract `json:"contract,omitempty"`

	priv *keys.PrivateKey
}

// NewAccount builds a new NEP-6 account for priv, encrypting its key
// with passphrase.
func NewAccount(priv *keys.PrivateKey, passphrase, label string, isDefault bool) (*Account, error) {
	enc, err := keys.NEP2Encrypt(priv, passphrase)
	if err != nil {
		return nil, err
	}
	pub := priv.PublicKey()
	script := pub.CreateSignatureRedeemScript()
	return &Account{
		Address:   pub.Address(),
		Label:     label,
		IsDefault: isDefault,
		Key:       enc,
		Contract: &Contract{
			Script:     hex.EncodeToString(script),
			Parameters: []string{"signature"},
		},
		priv: priv,
	}, nil
}

// Decrypt unlocks the account's private key with passphrase, caching
// it so repeated signing during a single process run only pays the
// scrypt cost once.
func (a *Account) Decrypt(passphrase string) (*keys.PrivateKey, error) {
	if a.priv != nil {
		return a.priv, nil
	}
	priv, err := keys.NEP2Decrypt(a.Key, passphrase)
	if err != nil {
		return nil, err
	}
	a.priv = priv
	return priv, nil
}
