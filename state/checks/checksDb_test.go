package checks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"vaultconnector/engine/library"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"))
}

var (
	alice = library.Prefix{1}.Account(0)
	bob   = library.Prefix{2}.Account(0)
)

func TestRepeatedInsertIsVisitedOnce(t *testing.T) {
	db := NewDb()
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Insert(Accounts, alice))
	}
	require.NoError(t, db.Insert(Accounts, bob))
	require.NoError(t, db.Insert(Vaults, alice))

	var visited []library.Address
	require.NoError(t, db.DrainWithCallback(Accounts, func(a library.Address) error {
		visited = append(visited, a)
		return nil
	}))
	assert.Equal(t, []library.Address{alice, bob}, visited)
	assert.Equal(t, 0, db.Len(Accounts))
	assert.True(t, db.Contains(Vaults, alice))
	assert.False(t, db.IsEmpty())
}

func TestDrainFailureIsRevertible(t *testing.T) {
	db := NewDb()
	require.NoError(t, db.Insert(Vaults, alice))
	require.NoError(t, db.Insert(Vaults, bob))
	snapshot := db.Snapshot()

	boom := errors.New("boom")
	err := db.DrainWithCallback(Vaults, func(a library.Address) error { return boom })
	assert.ErrorIs(t, err, boom)

	db.Revert(snapshot)
	assert.Equal(t, []library.Address{alice, bob}, db.Members(Vaults))
}

func TestRemove(t *testing.T) {
	db := NewDb()
	require.NoError(t, db.Insert(Accounts, alice))
	assert.True(t, db.Remove(Accounts, alice))
	assert.False(t, db.Remove(Accounts, alice))
	assert.True(t, db.IsEmpty())
	assert.Equal(t, "accounts", Accounts.String())
	assert.Equal(t, "vaults", Vaults.String())
}

func TestSetLimit(t *testing.T) {
	db := NewDb()
	for i := 0; i < library.SetMaxElements; i++ {
		require.NoError(t, db.Insert(Accounts, library.Prefix{byte(i + 1)}.Account(0)))
	}
	assert.True(t, library.IsError(db.Insert(Accounts, library.Prefix{0xff}.Account(0)), library.TooManyElements))
}
