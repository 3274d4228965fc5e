package accounts

import (
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
	account = library.Prefix{1}.Account(0)
	vaultA  = library.Prefix{0xa}.Account(0)
	vaultB  = library.Prefix{0xb}.Account(0)
	vaultC  = library.Prefix{0xc}.Account(0)
)

func TestCollaterals(t *testing.T) {
	db := NewDb()
	assert.Nil(t, db.Collaterals(account))

	for _, v := range []library.Address{vaultA, vaultB, vaultC} {
		inserted, err := db.EnableCollateral(account, v)
		require.NoError(t, err)
		assert.True(t, inserted)
	}
	inserted, err := db.EnableCollateral(account, vaultA)
	require.NoError(t, err)
	assert.False(t, inserted)

	require.NoError(t, db.ReorderCollaterals(account, 0, 2))
	assert.Equal(t, []library.Address{vaultC, vaultB, vaultA}, db.Collaterals(account))
	assert.True(t, library.IsError(db.ReorderCollaterals(account, 1, 1), library.InvalidIndex))
	assert.True(t, library.IsError(db.ReorderCollaterals(vaultA, 0, 1), library.InvalidIndex))

	assert.True(t, db.DisableCollateral(account, vaultB))
	assert.False(t, db.DisableCollateral(account, vaultB))
	assert.True(t, db.IsCollateralEnabled(account, vaultA))
	assert.False(t, db.IsCollateralEnabled(account, vaultB))
}

func TestSingleController(t *testing.T) {
	db := NewDb()
	_, err := db.SingleController(account)
	assert.True(t, library.IsError(err, library.ControllerViolation))

	_, err = db.EnableController(account, vaultA)
	require.NoError(t, err)
	controller, err := db.SingleController(account)
	require.NoError(t, err)
	assert.Equal(t, vaultA, controller)

	_, err = db.EnableController(account, vaultB)
	require.NoError(t, err)
	assert.Equal(t, 2, db.ControllerCount(account))
	_, err = db.SingleController(account)
	assert.True(t, library.IsError(err, library.ControllerViolation))

	assert.True(t, db.DisableController(account, vaultA))
	assert.True(t, db.DisableController(account, vaultB))
	assert.Equal(t, 0, db.ControllerCount(account))
	assert.Empty(t, db.GetMap().Controllers)
}

func TestSetLimit(t *testing.T) {
	db := NewDb()
	for i := 0; i < library.SetMaxElements; i++ {
		_, err := db.EnableCollateral(account, library.Prefix{byte(i + 1)}.Account(1))
		require.NoError(t, err)
	}
	_, err := db.EnableCollateral(account, vaultA)
	assert.True(t, library.IsError(err, library.TooManyElements))
}

func TestSnapshotRevertAndRestore(t *testing.T) {
	db := NewDb()
	_, err := db.EnableCollateral(account, vaultA)
	require.NoError(t, err)
	snapshot := db.Snapshot()
	_, err = db.EnableCollateral(account, vaultB)
	require.NoError(t, err)
	_, err = db.EnableController(account, vaultC)
	require.NoError(t, err)

	db.Revert(snapshot)
	assert.Equal(t, []library.Address{vaultA}, db.Collaterals(account))
	assert.Nil(t, db.Controllers(account))

	restored := NewDb()
	restored.Restore(db.GetMap())
	assert.Equal(t, db.GetMap(), restored.GetMap())
}
