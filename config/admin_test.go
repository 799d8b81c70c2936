package config

import (
	"path/filepath"
	"testing"

	"github.com/safedep/blpfs/label"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminStore(t *testing.T) string {
	t.Helper()

	usersFile := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, SaveStore(usersFile, Credentials{
		"root":    {Level: "TOP_SECRET", Trusted: true},
		"auditor": {Level: "TOP_SECRET", Trusted: false},
		"alice":   {Level: "SECRET", Trusted: false},
		"eve":     {Level: "UNCLASSIFIED", Trusted: false},
	}))

	return usersFile
}

func TestSetTrust(t *testing.T) {
	t.Run("top secret trusted operator may change trust", func(t *testing.T) {
		usersFile := adminStore(t)

		require.NoError(t, SetTrust(usersFile, "root", "alice", true))

		creds, err := LoadStore(usersFile)
		require.NoError(t, err)
		assert.True(t, creds["alice"].Trusted)
	})

	t.Run("untrusted top secret operator is rejected", func(t *testing.T) {
		usersFile := adminStore(t)
		assert.Error(t, SetTrust(usersFile, "auditor", "alice", true))
	})

	t.Run("trusted but lower operator is rejected", func(t *testing.T) {
		usersFile := adminStore(t)
		require.NoError(t, SetTrust(usersFile, "root", "alice", true))

		// alice is now trusted but only SECRET; still not an administrator
		assert.Error(t, SetTrust(usersFile, "alice", "eve", true))
	})

	t.Run("unknown operator is rejected", func(t *testing.T) {
		usersFile := adminStore(t)
		assert.Error(t, SetTrust(usersFile, "mallory", "alice", true))
	})

	t.Run("unknown target is rejected", func(t *testing.T) {
		usersFile := adminStore(t)
		assert.Error(t, SetTrust(usersFile, "root", "mallory", true))
	})
}

func TestSetLevel(t *testing.T) {
	t.Run("operator above target and new level may change", func(t *testing.T) {
		usersFile := adminStore(t)

		require.NoError(t, SetLevel(usersFile, "root", "eve", label.Confidential))

		creds, err := LoadStore(usersFile)
		require.NoError(t, err)
		assert.Equal(t, "CONFIDENTIAL", creds["eve"].Level)
	})

	t.Run("cannot raise a target to the operator's own level", func(t *testing.T) {
		usersFile := adminStore(t)
		assert.Error(t, SetLevel(usersFile, "root", "alice", label.TopSecret))
	})

	t.Run("cannot change a target at the operator's level", func(t *testing.T) {
		usersFile := adminStore(t)
		assert.Error(t, SetLevel(usersFile, "root", "auditor", label.Secret))
	})

	t.Run("untrusted operator is rejected", func(t *testing.T) {
		usersFile := adminStore(t)
		assert.Error(t, SetLevel(usersFile, "auditor", "eve", label.Confidential))
	})
}

func TestAddRemovePrincipal(t *testing.T) {
	t.Run("adds below the operator's level", func(t *testing.T) {
		usersFile := adminStore(t)

		require.NoError(t, AddPrincipal(usersFile, "root", "bob", label.Secret, false))

		creds, err := LoadStore(usersFile)
		require.NoError(t, err)
		assert.Equal(t, "SECRET", creds["bob"].Level)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		usersFile := adminStore(t)
		assert.Error(t, AddPrincipal(usersFile, "root", "alice", label.Secret, false))
	})

	t.Run("rejects creation at the operator's level", func(t *testing.T) {
		usersFile := adminStore(t)
		assert.Error(t, AddPrincipal(usersFile, "root", "peer", label.TopSecret, true))
	})

	t.Run("removes below the operator's level", func(t *testing.T) {
		usersFile := adminStore(t)

		require.NoError(t, RemovePrincipal(usersFile, "root", "eve"))

		creds, err := LoadStore(usersFile)
		require.NoError(t, err)
		_, ok := creds["eve"]
		assert.False(t, ok)
	})

	t.Run("rejects removal at the operator's level", func(t *testing.T) {
		usersFile := adminStore(t)
		assert.Error(t, RemovePrincipal(usersFile, "root", "auditor"))
	})
}
