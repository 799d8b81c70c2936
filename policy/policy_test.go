package policy

import (
	"testing"

	"github.com/safedep/blpfs/label"
	"github.com/safedep/blpfs/principal"
	"github.com/stretchr/testify/assert"
)

func subject(clearance label.Sensitivity, trusted bool) principal.Principal {
	return principal.Principal{Name: "test", Clearance: clearance, Trusted: trusted}
}

func TestDecideRead(t *testing.T) {
	tests := []struct {
		name      string
		clearance label.Sensitivity
		object    label.Sensitivity
		want      Outcome
		reason    string
	}{
		{
			name:      "read up is denied",
			clearance: label.Unclassified,
			object:    label.Secret,
			want:      Deny,
			reason:    ReasonNoReadUp,
		},
		{
			name:      "read at same level is granted",
			clearance: label.Secret,
			object:    label.Secret,
			want:      Grant,
		},
		{
			name:      "read down is granted",
			clearance: label.TopSecret,
			object:    label.Unclassified,
			want:      Grant,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for _, op := range []Operation{OpAccess, OpOpenRead} {
				dec := Decide(subject(test.clearance, false), op, test.object, Intent{})
				assert.Equal(t, test.want, dec.Outcome, "op %s", op)
				assert.Equal(t, test.reason, dec.Reason, "op %s", op)
			}
		})
	}
}

func TestDecideWrite(t *testing.T) {
	tests := []struct {
		name      string
		clearance label.Sensitivity
		trusted   bool
		object    label.Sensitivity
		want      Outcome
		reason    string
	}{
		{
			name:      "write at same level is granted",
			clearance: label.Secret,
			object:    label.Secret,
			want:      Grant,
		},
		{
			name:      "write up is granted",
			clearance: label.Unclassified,
			object:    label.TopSecret,
			want:      Grant,
		},
		{
			name:      "write down is denied for untrusted",
			clearance: label.Secret,
			object:    label.Unclassified,
			want:      Deny,
			reason:    ReasonNoWriteDown,
		},
		{
			name:      "write down is a downgrade for trusted",
			clearance: label.Secret,
			trusted:   true,
			object:    label.Unclassified,
			want:      GrantAsDowngrade,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for _, op := range []Operation{OpOpenWrite, OpOpenAppend, OpCreate} {
				dec := Decide(subject(test.clearance, test.trusted), op, test.object, Intent{})
				assert.Equal(t, test.want, dec.Outcome, "op %s", op)
				assert.Equal(t, test.reason, dec.Reason, "op %s", op)

				if test.want == GrantAsDowngrade {
					assert.Equal(t, test.clearance, dec.From, "op %s", op)
					assert.Equal(t, test.object, dec.To, "op %s", op)
					assert.True(t, dec.Granted())
				}
			}
		})
	}
}

func TestDecideUnlink(t *testing.T) {
	t.Run("delete up is denied", func(t *testing.T) {
		dec := Decide(subject(label.Confidential, false), OpUnlink, label.Secret, Intent{})
		assert.Equal(t, Deny, dec.Outcome)
		assert.Equal(t, ReasonNoDeleteUp, dec.Reason)
	})

	t.Run("delete at or below is granted", func(t *testing.T) {
		assert.Equal(t, Grant,
			Decide(subject(label.Secret, false), OpUnlink, label.Secret, Intent{}).Outcome)
		assert.Equal(t, Grant,
			Decide(subject(label.Secret, false), OpUnlink, label.Unclassified, Intent{}).Outcome)
	})
}

func TestDecideMetadata(t *testing.T) {
	// Metadata and directory listings never deny, regardless of levels.
	for _, op := range []Operation{OpGetAttr, OpReadDir} {
		dec := Decide(subject(label.Unclassified, false), op, label.TopSecret, Intent{})
		assert.Equal(t, Grant, dec.Outcome, "op %s", op)
	}
}

func TestDecideExpurgate(t *testing.T) {
	tests := []struct {
		name    string
		trusted bool
		source  label.Sensitivity
		dest    label.Sensitivity
		want    Outcome
		reason  string
	}{
		{
			name:   "untrusted is denied",
			source: label.Secret,
			dest:   label.Unclassified,
			want:   Deny,
			reason: ReasonNotTrustedDowngrade,
		},
		{
			name:    "equal levels are denied",
			trusted: true,
			source:  label.Secret,
			dest:    label.Secret,
			want:    Deny,
			reason:  ReasonNotStrictDowngrade,
		},
		{
			name:    "upgrade direction is denied",
			trusted: true,
			source:  label.Confidential,
			dest:    label.Secret,
			want:    Deny,
			reason:  ReasonNotStrictDowngrade,
		},
		{
			name:    "strict downgrade is granted",
			trusted: true,
			source:  label.Secret,
			dest:    label.Unclassified,
			want:    GrantAsDowngrade,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dec := Decide(subject(label.TopSecret, test.trusted), OpExpurgate,
				test.source, Intent{Destination: test.dest})
			assert.Equal(t, test.want, dec.Outcome)
			assert.Equal(t, test.reason, dec.Reason)

			if test.want == GrantAsDowngrade {
				assert.Equal(t, test.source, dec.From)
				assert.Equal(t, test.dest, dec.To)
			}
		})
	}
}

// Expurgate ordering law: permitted iff label(src) > label(dst), for a
// trusted principal, over the whole label lattice.
func TestExpurgateOrderingLaw(t *testing.T) {
	p := subject(label.TopSecret, true)

	for src := label.Unclassified; src <= label.TopSecret; src++ {
		for dst := label.Unclassified; dst <= label.TopSecret; dst++ {
			dec := Decide(p, OpExpurgate, src, Intent{Destination: dst})
			assert.Equal(t, src > dst, dec.Granted(), "src=%s dst=%s", src, dst)
		}
	}
}
