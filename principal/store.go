package principal

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/safedep/blpfs/config"
	"github.com/safedep/blpfs/label"
	"github.com/safedep/dry/log"
)

// StoreResolver resolves the current principal from the session
// environment file plus the credential store. Both are re-read on every
// call: a `login` in the shell or an administrative credential change is
// visible to the very next mediated operation.
type StoreResolver struct {
	// UsersFile is the credential store path.
	UsersFile string

	// SessionFile is the env file holding the USER binding. May be
	// empty, in which case only the process environment is consulted.
	SessionFile string
}

var _ Resolver = (*StoreResolver)(nil)

// NewStoreResolver builds a resolver over the well-known config paths.
func NewStoreResolver() (*StoreResolver, error) {
	usersFile, err := config.UsersFilePath()
	if err != nil {
		return nil, err
	}

	sessionFile, err := config.SessionFilePath()
	if err != nil {
		return nil, err
	}

	return &StoreResolver{UsersFile: usersFile, SessionFile: sessionFile}, nil
}

func (r *StoreResolver) CurrentPrincipal() Principal {
	name := r.currentName()

	creds, err := config.LoadStore(r.UsersFile)
	if err != nil {
		// The resolver never fails: an unreadable store degrades to
		// the anonymous principal for this one operation.
		log.Warnf("failed to load credential store: %v", err)
		return Anonymous(name)
	}

	cred, ok := creds[name]
	if !ok {
		cred, ok = creds[config.DefaultPrincipalName]
	}
	if !ok {
		return Anonymous(name)
	}

	lvl, err := label.Parse(cred.Level)
	if err != nil {
		log.Warnf("principal %q has an invalid level %q, treating as UNCLASSIFIED", name, cred.Level)
		return Anonymous(name)
	}

	return Principal{Name: name, Clearance: lvl, Trusted: cred.Trusted}
}

// currentName reads the identity binding. The session file wins over
// the process environment so a long-running mount follows shell logins.
func (r *StoreResolver) currentName() string {
	if r.SessionFile != "" {
		if env, err := godotenv.Read(r.SessionFile); err == nil {
			if name := env["USER"]; name != "" {
				return name
			}
		}
	}

	if name := os.Getenv("USER"); name != "" {
		return name
	}

	return config.DefaultPrincipalName
}
