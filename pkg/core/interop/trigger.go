// Package interop implements the application engine (§4.3): the layer
// wrapping pkg/vm with the syscall table, trigger-scoped interop
// visibility, witness checking and notification buffering that native
// contracts and deployed contracts both run under.
package interop

// Trigger identifies why a script is executing, gating which syscalls
// and native methods are reachable (§4.3, §4.6's OnPersist/PostPersist).
type Trigger byte

// Trigger values.
const (
	TriggerOnPersist     Trigger = 0x01
	TriggerPostPersist   Trigger = 0x02
	TriggerVerification  Trigger = 0x20
	TriggerApplication   Trigger = 0x40
	TriggerSystem        = TriggerOnPersist | TriggerPostPersist
	TriggerAll           = TriggerOnPersist | TriggerPostPersist | TriggerVerification | TriggerApplication
)

// String implements fmt.Stringer.
func (t Trigger) String() string {
	switch t {
	case TriggerOnPersist:
		return "OnPersist"
	case TriggerPostPersist:
		return "PostPersist"
	case TriggerVerification:
		return "Verification"
	case TriggerApplication:
		return "Application"
	default:
		return "Unknown"
	}
}
