package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/n3-go/n3node/pkg/config/netmode"
	"github.com/n3-go/n3node/pkg/crypto/keys"
)

// ProtocolConfiguration describes the consensus-critical parameters of
// the network a node joins: every honest node on the same Magic must
// agree on every field here (§4.6, §4.7).
type ProtocolConfiguration struct {
	Magic netmode.Magic `yaml:"Magic"`

	// StandbyCommittee lists the hex-encoded compressed public keys of
	// the committee members in genesis order; the first ValidatorsCount
	// of them are the initial consensus validators.
	StandbyCommittee []string `yaml:"StandbyCommittee"`
	ValidatorsCount  int      `yaml:"ValidatorsCount"`

	SeedList []string `yaml:"SeedList"`

	// TimePerBlock is the target interval between blocks; it must be an
	// integer number of milliseconds.
	TimePerBlock time.Duration `yaml:"TimePerBlock"`

	MemPoolSize             int    `yaml:"MemPoolSize"`
	MaxTransactionsPerBlock uint16 `yaml:"MaxTransactionsPerBlock"`
	MaxBlockSystemFee       int64  `yaml:"MaxBlockSystemFee"`
	ExecFeeFactor           int64  `yaml:"ExecFeeFactor"`

	// VerifyTransactions toggles witness/fee verification of
	// transactions carried in blocks received over P2P; disabling it is
	// only ever appropriate for local fixture chains.
	VerifyTransactions bool `yaml:"VerifyTransactions"`
}

// Validate checks ProtocolConfiguration for internal consistency.
func (p *ProtocolConfiguration) Validate() error {
	if p.TimePerBlock%time.Millisecond != 0 {
		return errors.New("config: TimePerBlock must be an integer number of milliseconds")
	}
	if len(p.StandbyCommittee) == 0 {
		return errors.New("config: StandbyCommittee must not be empty")
	}
	if p.ValidatorsCount <= 0 || p.ValidatorsCount > len(p.StandbyCommittee) {
		return fmt.Errorf("config: ValidatorsCount (%d) must be between 1 and len(StandbyCommittee) (%d)",
			p.ValidatorsCount, len(p.StandbyCommittee))
	}
	if p.MaxTransactionsPerBlock == 0 {
		return errors.New("config: MaxTransactionsPerBlock must be nonzero")
	}
	if _, err := p.StandbyCommitteeKeys(); err != nil {
		return fmt.Errorf("config: StandbyCommittee: %w", err)
	}
	return nil
}

// StandbyCommitteeKeys decodes StandbyCommittee into public keys.
func (p *ProtocolConfiguration) StandbyCommitteeKeys() (keys.PublicKeys, error) {
	pubs := make(keys.PublicKeys, len(p.StandbyCommittee))
	for i, s := range p.StandbyCommittee {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("committee member %d: %w", i, err)
		}
		pub, err := keys.NewPublicKeyFromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("committee member %d: %w", i, err)
		}
		pubs[i] = pub
	}
	return pubs, nil
}

// Validators returns the first ValidatorsCount standby committee keys,
// the initial dBFT validator set.
func (p *ProtocolConfiguration) Validators() (keys.PublicKeys, error) {
	all, err := p.StandbyCommitteeKeys()
	if err != nil {
		return nil, err
	}
	return all[:p.ValidatorsCount], nil
}
