// Package state defines the persisted record of a deployed contract
// (ID, update counter, hash, NEF and manifest) that ContractManagement
// stores (§4.6).
package state

import (
	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/smartcontract/manifest"
	"github.com/n3-go/n3node/pkg/smartcontract/nef"
	"github.com/n3-go/n3node/pkg/util"
)

// Contract is a deployed contract's full on-chain record: the
// sequential ID it was assigned, how many times it has been updated,
// its fixed script hash and its NEF/manifest pair.
type Contract struct {
	ID            int32
	UpdateCounter uint16
	Hash          util.Uint160
	NEF           nef.File
	Manifest      manifest.Manifest
}

// CreateContractHash derives the script hash a freshly-deployed
// contract will receive: Hash160 of sender || varint 0 || var-length
// script, keeping deployment addresses deterministic and sender-scoped
// without a separate registry transaction.
func CreateContractHash(sender util.Uint160, script []byte) util.Uint160 {
	w := io.NewBufBinWriter()
	w.WriteBytes(sender.BytesLE())
	w.WriteVarUint(0)
	w.WriteVarBytes(script)
	return hash.Hash160(w.Bytes())
}

// ToContractState converts the deployed record into the minimal
// ABI/permission surface the application engine consults when
// resolving a System.Contract.Call target (§4.3).
func (c *Contract) ToContractState() interop.ContractState {
	nefBytes, _ := c.NEF.Bytes()
	perms := make([]interop.Permission, len(c.Manifest.Permissions))
	for i, p := range c.Manifest.Permissions {
		var target util.Uint160
		if p.Contract != nil {
			target = *p.Contract
		}
		perms[i] = interop.Permission{Contract: target, Methods: p.Methods}
	}
	groups := make([]*keys.PublicKey, len(c.Manifest.Groups))
	for i, g := range c.Manifest.Groups {
		groups[i] = g.PublicKey
	}
	return interop.ContractState{
		ID:   c.ID,
		Hash: c.Hash,
		NEF:  nefBytes,
		Manifest: interop.ContractManifest{
			Name:        c.Manifest.Name,
			Groups:      groups,
			Permissions: perms,
		},
	}
}
