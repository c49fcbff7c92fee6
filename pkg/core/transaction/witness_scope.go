package transaction

import (
	"fmt"
	"strings"
)

// WitnessScope restricts when a transaction Signer's witness is considered
// valid for a contract call, narrowing the blanket authorization that a
// bare signature would otherwise grant (§3, §4.5).
type WitnessScope byte

// Scope values. They combine except for None and Global, which are
// exclusive with everything else.
const (
	None             WitnessScope = 0x00
	CalledByEntry    WitnessScope = 0x01
	CustomContracts  WitnessScope = 0x10
	CustomGroups     WitnessScope = 0x20
	Rules            WitnessScope = 0x40
	Global           WitnessScope = 0x80
)

var scopeNames = map[WitnessScope]string{
	None:            "None",
	CalledByEntry:   "CalledByEntry",
	CustomContracts: "CustomContracts",
	CustomGroups:    "CustomGroups",
	Rules:           "Rules",
	Global:          "Global",
}

var namesToScope = func() map[string]WitnessScope {
	m := make(map[string]WitnessScope, len(scopeNames))
	for k, v := range scopeNames {
		m[v] = k
	}
	return m
}()

// String renders the set bits of s as a comma-separated name list.
func (s WitnessScope) String() string {
	if s == None {
		return "None"
	}
	if s == Global {
		return "Global"
	}
	var parts []string
	for _, sc := range []WitnessScope{CalledByEntry, CustomContracts, CustomGroups, Rules} {
		if s&sc != 0 {
			parts = append(parts, scopeNames[sc])
		}
	}
	return strings.Join(parts, ", ")
}

// ScopesFromString parses a comma-separated scope name list, rejecting a
// mix of Global/None with any other scope and deduplicating repeats.
func ScopesFromString(s string) (WitnessScope, error) {
	if s == "" {
		return 0, fmt.Errorf("transaction: empty scopes string")
	}
	var result WitnessScope
	for _, raw := range strings.Split(s, ",") {
		name := strings.TrimSpace(raw)
		sc, ok := namesToScope[name]
		if !ok {
			return 0, fmt.Errorf("transaction: unknown witness scope %q", name)
		}
		if sc == Global || sc == None {
			if result != 0 {
				return 0, fmt.Errorf("transaction: %s cannot be combined with other scopes", name)
			}
			if len(strings.Split(s, ",")) > 1 {
				return 0, fmt.Errorf("transaction: %s cannot be combined with other scopes", name)
			}
			return sc, nil
		}
		result |= sc
	}
	return result, nil
}

// ScopesFromByte validates a raw scope byte, rejecting combinations that
// mix Global/None with any other bit and any bit outside the known set.
func ScopesFromByte(b byte) (WitnessScope, error) {
	s := WitnessScope(b)
	const known = CalledByEntry | CustomContracts | CustomGroups | Rules | Global
	if b&^byte(known) != 0 {
		return 0, fmt.Errorf("transaction: unknown witness scope bits in 0x%x", b)
	}
	if s&Global != 0 && s != Global {
		return 0, fmt.Errorf("transaction: Global cannot be combined with other scopes")
	}
	return s, nil
}
