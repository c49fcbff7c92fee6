// Package wallet reads NEP-6 JSON wallets: the on-disk format a node
// uses to keep a consensus validator's (or any other) signing key
// encrypted at rest via NEP-2, unlocked only with an operator-supplied
// passphrase at startup.
package wallet

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/n3-go/n3node/pkg/crypto/keys"
)

// ScryptParams are the scrypt cost parameters recorded in a wallet
// file. NEP2Decrypt always uses NEP-2's standard parameters (N=16384,
// r=8, p=8); a wallet recorded with different values cannot be
// unlocked by this package.
type ScryptParams struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

// DefaultScryptParams are the parameters new wallets are stamped with.
var DefaultScryptParams = ScryptParams{N: 16384, R: 8, P: 8}

// Wallet is the top-level NEP-6 document.
type Wallet struct {
	Version  string       `json:"version"`
	Accounts []*Account   `json:"accounts"`
	Scrypt   ScryptParams `json:"scrypt"`
	Extra    interface{}  `json:"extra,omitempty"`

	path string
}

// ErrNoDefaultAccount is returned by DefaultAccount when a wallet has
// no account flagged "isdefault".
var ErrNoDefaultAccount = errors.New("wallet: no default account")

// LoadFile reads and parses a NEP-6 wallet from path.
func LoadFile(path string) (*Wallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w Wallet
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	w.path = path
	return &w, nil
}

// Save writes the wallet to path, or back to the file it was loaded
// from when path is empty, pretty-printed like every other NEP-6
// wallet on disk.
func (w *Wallet) Save(path string) error {
	if path == "" {
		path = w.path
	}
	raw, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// DefaultAccount returns the account flagged as default, if any.
func (w *Wallet) DefaultAccount() (*Account, error) {
	for _, acc := range w.Accounts {
		if acc.IsDefault {
			return acc, nil
		}
	}
	return nil, ErrNoDefaultAccount
}

// AccountByAddress looks up an account by its Base58Check address.
func (w *Wallet) AccountByAddress(address string) (*Account, error) {
	for _, acc := range w.Accounts {
		if acc.Address == address {
			return acc, nil
		}
	}
	return nil, errors.New("wallet: no such account: " + address)
}

// AddAccount encrypts priv with passphrase and appends it to the
// wallet as a new NEP-6 account.
func (w *Wallet) AddAccount(priv *keys.PrivateKey, passphrase, label string, isDefault bool) error {
	acc, err := NewAccount(priv, passphrase, label, isDefault)
	if err != nil {
		return err
	}
	w.Accounts = append(w.Accounts, acc)
	return nil
}
