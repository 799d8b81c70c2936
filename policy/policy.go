package policy

import (
	"github.com/safedep/blpfs/label"
	"github.com/safedep/blpfs/principal"
)

// Operation is a mediated filesystem operation submitted for a decision.
type Operation string

const (
	OpGetAttr    Operation = "getattr"
	OpReadDir    Operation = "readdir"
	OpAccess     Operation = "access"
	OpOpenRead   Operation = "open_read"
	OpOpenWrite  Operation = "open_write"
	OpOpenAppend Operation = "open_append"
	OpCreate     Operation = "create"
	OpUnlink     Operation = "unlink"
	OpExpurgate  Operation = "expurgate"
)

// Outcome of a policy decision.
type Outcome int

const (
	Grant Outcome = iota
	Deny
	GrantAsDowngrade
)

// Denial reasons recorded in the audit trail.
const (
	ReasonNoReadUp            = "no-read-up"
	ReasonNoWriteDown         = "no-write-down"
	ReasonNoDeleteUp          = "no-delete-up"
	ReasonNotTrustedDowngrade = "not-trusted-for-downgrade"
	ReasonNotStrictDowngrade  = "source-not-above-destination"
	ReasonPathEscape          = "PATH_ESCAPE"
)

// Intent carries operation-specific inputs. Only Expurgate uses it: the
// destination label of the downgrade.
type Intent struct {
	Destination label.Sensitivity
}

// Decision is the result of mediating one operation.
type Decision struct {
	Outcome Outcome
	Reason  string

	// Downgrade pair, set when Outcome is GrantAsDowngrade.
	From label.Sensitivity
	To   label.Sensitivity
}

func (d Decision) Granted() bool {
	return d.Outcome == Grant || d.Outcome == GrantAsDowngrade
}

func granted() Decision {
	return Decision{Outcome: Grant}
}

func denied(reason string) Decision {
	return Decision{Outcome: Deny, Reason: reason}
}

func downgrade(from, to label.Sensitivity) Decision {
	return Decision{Outcome: GrantAsDowngrade, From: from, To: to}
}

// Decide evaluates the Bell-LaPadula rules for one operation against one
// object label. It is a pure function: no I/O, no state. Equal levels
// satisfy both the read and the write direction.
func Decide(p principal.Principal, op Operation, object label.Sensitivity, intent Intent) Decision {
	switch op {
	case OpGetAttr, OpReadDir:
		// Metadata and directory listings are always visible. Entry
		// level annotations are the mediator's concern.
		return granted()

	case OpAccess, OpOpenRead:
		// No read up.
		if p.Clearance < object {
			return denied(ReasonNoReadUp)
		}
		return granted()

	case OpOpenWrite, OpOpenAppend, OpCreate:
		// Writing at or above the subject's level is always allowed.
		if p.Clearance <= object {
			return granted()
		}
		// Write down is a downgrade, reserved for trusted principals.
		if !p.Trusted {
			return denied(ReasonNoWriteDown)
		}
		return downgrade(p.Clearance, object)

	case OpUnlink:
		// No delete up.
		if p.Clearance < object {
			return denied(ReasonNoDeleteUp)
		}
		return granted()

	case OpExpurgate:
		if !p.Trusted {
			return denied(ReasonNotTrustedDowngrade)
		}
		if object <= intent.Destination {
			return denied(ReasonNotStrictDowngrade)
		}
		return downgrade(object, intent.Destination)
	}

	return denied("unknown-operation")
}
