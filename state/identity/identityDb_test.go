package identity

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

func prefix(b byte) (p library.Prefix) {
	for i := range p {
		p[i] = b
	}
	return
}

func TestOwnerRegistrationIsSticky(t *testing.T) {
	db := NewDb()
	p := prefix(1)
	first, second := p.Account(3), p.Account(9)

	assert.True(t, db.IsOwner(p, first))
	assert.True(t, db.IsOwner(p, second))

	registered, err := db.RegisterOwnerIfAbsent(p, first)
	require.NoError(t, err)
	assert.True(t, registered)

	registered, err = db.RegisterOwnerIfAbsent(p, first)
	require.NoError(t, err)
	assert.False(t, registered)

	_, err = db.RegisterOwnerIfAbsent(p, second)
	assert.True(t, library.IsError(err, library.NotAuthorized))
	assert.False(t, db.IsOwner(p, second))

	owner, ok := db.Owner(p)
	require.True(t, ok)
	assert.Equal(t, first, owner)
}

func TestRegistrationRequiresSamePrefix(t *testing.T) {
	db := NewDb()
	_, err := db.RegisterOwnerIfAbsent(prefix(1), prefix(2).Account(0))
	assert.True(t, library.IsError(err, library.NotAuthorized))
	assert.False(t, db.IsOwner(prefix(1), prefix(2).Account(0)))
}

func TestOperatorMasks(t *testing.T) {
	db := NewDb()
	p := prefix(1)
	operator := prefix(2).Account(0)
	account := p.Account(5)

	assert.True(t, db.SetOperatorMask(p, operator, library.MaskOf(5)))
	// no owner registered yet, so nothing is authorized
	assert.False(t, db.IsOperatorAuthorized(account, operator))

	_, err := db.RegisterOwnerIfAbsent(p, p.Account(0))
	require.NoError(t, err)
	assert.True(t, db.IsOperatorAuthorized(account, operator))
	assert.False(t, db.IsOperatorAuthorized(p.Account(6), operator))

	assert.False(t, db.SetOperatorMask(p, operator, library.MaskOf(5)))
	assert.True(t, db.SetOperatorMask(p, operator, library.OperatorMask{}))
	assert.False(t, db.IsOperatorAuthorized(account, operator))
	assert.Empty(t, db.GetMap().Operators)
}

func TestSnapshotRevert(t *testing.T) {
	db := NewDb()
	p := prefix(1)
	operator := prefix(2).Account(0)
	_, err := db.RegisterOwnerIfAbsent(p, p.Account(0))
	require.NoError(t, err)
	db.SetOperatorMask(p, operator, library.MaskOf(1))

	snapshot := db.Snapshot()
	db.SetOperatorMask(p, operator, library.MaskOf(1, 2))
	_, err = db.RegisterOwnerIfAbsent(prefix(3), prefix(3).Account(0))
	require.NoError(t, err)

	db.Revert(snapshot)
	assert.Equal(t, library.MaskOf(1), db.OperatorMask(p, operator))
	_, ok := db.Owner(prefix(3))
	assert.False(t, ok)

	// the snapshot must not alias live state
	db.SetOperatorMask(p, operator, library.MaskOf(7))
	db.Revert(snapshot)
	assert.Equal(t, library.MaskOf(1), db.OperatorMask(p, operator))
}
