package principal

import (
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/safedep/blpfs/config"
	"github.com/safedep/blpfs/label"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStore(t *testing.T, dir string, creds config.Credentials) string {
	t.Helper()

	usersFile := filepath.Join(dir, "users.json")
	require.NoError(t, config.SaveStore(usersFile, creds))
	return usersFile
}

func writeSession(t *testing.T, dir, user string) string {
	t.Helper()

	sessionFile := filepath.Join(dir, "session.env")
	require.NoError(t, godotenv.Write(map[string]string{"USER": user}, sessionFile))
	return sessionFile
}

func TestStoreResolver(t *testing.T) {
	dir := t.TempDir()

	usersFile := writeStore(t, dir, config.Credentials{
		"alice":        {Level: "SECRET", Trusted: false},
		"root":         {Level: "TOP_SECRET", Trusted: true},
		"default_user": {Level: "UNCLASSIFIED", Trusted: false},
	})

	t.Run("resolves a known principal", func(t *testing.T) {
		sessionFile := writeSession(t, t.TempDir(), "alice")
		r := &StoreResolver{UsersFile: usersFile, SessionFile: sessionFile}

		p := r.CurrentPrincipal()
		assert.Equal(t, "alice", p.Name)
		assert.Equal(t, label.Secret, p.Clearance)
		assert.False(t, p.Trusted)
	})

	t.Run("resolves a trusted principal", func(t *testing.T) {
		sessionFile := writeSession(t, t.TempDir(), "root")
		r := &StoreResolver{UsersFile: usersFile, SessionFile: sessionFile}

		p := r.CurrentPrincipal()
		assert.Equal(t, label.TopSecret, p.Clearance)
		assert.True(t, p.Trusted)
	})

	t.Run("unknown principal falls back to default_user entry", func(t *testing.T) {
		sessionFile := writeSession(t, t.TempDir(), "mallory")
		r := &StoreResolver{UsersFile: usersFile, SessionFile: sessionFile}

		p := r.CurrentPrincipal()
		assert.Equal(t, "mallory", p.Name)
		assert.Equal(t, label.Unclassified, p.Clearance)
		assert.False(t, p.Trusted)
	})

	t.Run("missing store degrades to anonymous", func(t *testing.T) {
		sessionFile := writeSession(t, t.TempDir(), "alice")
		r := &StoreResolver{
			UsersFile:   filepath.Join(t.TempDir(), "missing.json"),
			SessionFile: sessionFile,
		}

		p := r.CurrentPrincipal()
		assert.Equal(t, "alice", p.Name)
		assert.Equal(t, label.Unclassified, p.Clearance)
		assert.False(t, p.Trusted)
	})

	t.Run("invalid level degrades to anonymous", func(t *testing.T) {
		bad := writeStore(t, t.TempDir(), config.Credentials{
			"alice": {Level: "ULTRA", Trusted: true},
		})
		sessionFile := writeSession(t, t.TempDir(), "alice")
		r := &StoreResolver{UsersFile: bad, SessionFile: sessionFile}

		p := r.CurrentPrincipal()
		assert.Equal(t, label.Unclassified, p.Clearance)
		assert.False(t, p.Trusted)
	})
}

// Freshness: the resolver re-reads both the session binding and the
// credential store, so a mutation is visible on the very next call.
func TestStoreResolverFreshness(t *testing.T) {
	dir := t.TempDir()

	usersFile := writeStore(t, dir, config.Credentials{
		"alice": {Level: "SECRET", Trusted: false},
	})
	sessionFile := writeSession(t, dir, "alice")

	r := &StoreResolver{UsersFile: usersFile, SessionFile: sessionFile}
	assert.Equal(t, label.Secret, r.CurrentPrincipal().Clearance)

	writeStore(t, dir, config.Credentials{
		"alice": {Level: "TOP_SECRET", Trusted: true},
	})

	p := r.CurrentPrincipal()
	assert.Equal(t, label.TopSecret, p.Clearance)
	assert.True(t, p.Trusted)

	writeSession(t, dir, "bob")
	assert.Equal(t, "bob", r.CurrentPrincipal().Name)
}

func TestStaticResolver(t *testing.T) {
	p := Principal{Name: "fixed", Clearance: label.Secret, Trusted: true}
	assert.Equal(t, p, Static(p).CurrentPrincipal())
}

func TestAnonymous(t *testing.T) {
	p := Anonymous("ghost")
	assert.Equal(t, "ghost", p.Name)
	assert.Equal(t, label.Unclassified, p.Clearance)
	assert.False(t, p.Trusted)
}
