package principal

import (
	"github.com/safedep/blpfs/label"
)

// Principal is an authenticated subject: a clearance level plus a
// discretionary trust flag. Trust is orthogonal to clearance and gates
// the downgrade operations (write down, expurgate).
type Principal struct {
	Name      string
	Clearance label.Sensitivity
	Trusted   bool
}

// Anonymous is the synthetic principal used when the identity binding is
// unset or unknown to the credential store.
func Anonymous(name string) Principal {
	return Principal{Name: name, Clearance: label.Unclassified, Trusted: false}
}

// Resolver produces the principal on whose behalf the current operation
// runs. The mediator calls it once per operation; implementations must
// re-read their backing store on every call so credential changes take
// effect without a remount. Resolvers never fail: an unresolvable
// identity degrades to the Anonymous principal.
type Resolver interface {
	CurrentPrincipal() Principal
}

// ResolverFunc adapts a function to the Resolver interface. Tests use
// this to inject deterministic identities.
type ResolverFunc func() Principal

func (f ResolverFunc) CurrentPrincipal() Principal {
	return f()
}

// Static returns a resolver that always yields the same principal.
func Static(p Principal) Resolver {
	return ResolverFunc(func() Principal { return p })
}
