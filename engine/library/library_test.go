package library

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"))
}

func address(prefixByte byte, index AccountIndex) Address {
	var p Prefix
	for i := range p {
		p[i] = prefixByte
	}
	return p.Account(index)
}

func TestAddressPrefixAndIndex(t *testing.T) {
	a := address(0xaa, 7)
	assert.Equal(t, AccountIndex(7), a.Index())
	assert.Equal(t, a.Prefix().Account(7), a)
	assert.True(t, HaveCommonOwner(a, a.Prefix().Account(255)))
	assert.False(t, HaveCommonOwner(a, address(0xab, 7)))

	parsed, err := ParseAddress(a.Hex())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = ParseAddress("0x1234")
	assert.Error(t, err)
	_, err = ParseAddress("not hex")
	assert.Error(t, err)
}

func TestAddressTextRoundTrip(t *testing.T) {
	a := address(0x01, 2)
	b, err := a.MarshalText()
	require.NoError(t, err)
	var out Address
	require.NoError(t, out.UnmarshalText(b))
	assert.Equal(t, a, out)

	p := a.Prefix()
	b, err = p.MarshalText()
	require.NoError(t, err)
	var outPrefix Prefix
	require.NoError(t, outPrefix.UnmarshalText(b))
	assert.Equal(t, p, outPrefix)
	assert.Error(t, outPrefix.UnmarshalText([]byte("0x00")))
}

func TestOperatorMask(t *testing.T) {
	var m OperatorMask
	assert.True(t, m.IsZero())
	for _, i := range []AccountIndex{0, 63, 64, 127, 200, 255} {
		m = m.With(i, true)
		assert.True(t, m.Bit(i), "bit %d", i)
	}
	assert.False(t, m.Bit(1))
	m = m.With(64, false)
	assert.False(t, m.Bit(64))
	assert.True(t, m.Bit(63))
	assert.Equal(t, MaskOf(0, 63, 127, 200, 255), m)

	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", MaskOf(0).Hex())
	assert.Equal(t, "0x8000000000000000000000000000000000000000000000000000000000000000", MaskOf(255).Hex())
}

func TestSetInsertRemove(t *testing.T) {
	a, b, c := address(1, 0), address(2, 0), address(3, 0)
	s := NewSet(a, b)
	inserted, err := s.Insert(a)
	require.NoError(t, err)
	assert.False(t, inserted)
	inserted, err = s.Insert(c)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, []Address{a, b, c}, s.Elements())

	assert.True(t, s.Remove(b))
	assert.False(t, s.Remove(b))
	assert.Equal(t, []Address{a, c}, s.Elements())
	assert.True(t, s.Contains(c))
	assert.False(t, s.Contains(b))
}

func TestSetCapacity(t *testing.T) {
	s := NewSet()
	for i := 0; i < SetMaxElements; i++ {
		_, err := s.Insert(address(byte(i), 0))
		require.NoError(t, err)
	}
	_, err := s.Insert(address(0xff, 0))
	assert.True(t, IsError(err, TooManyElements))
	// re-inserting a member of a full set is still a no-op
	inserted, err := s.Insert(address(0, 0))
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestSetSwap(t *testing.T) {
	a, b, c := address(1, 0), address(2, 0), address(3, 0)
	s := NewSet(a, b, c)
	require.NoError(t, s.Swap(0, 2))
	assert.Equal(t, []Address{c, b, a}, s.Elements())
	for _, tc := range [][2]int{{1, 1}, {2, 1}, {0, 3}, {-1, 1}} {
		assert.True(t, IsError(s.Swap(tc[0], tc[1]), InvalidIndex), "swap %v", tc)
	}
}

func TestSetForEachAndClear(t *testing.T) {
	a, b := address(1, 0), address(2, 0)
	s := NewSet(a, b)
	var seen []Address
	err := s.ForEachAndClear(func(e Address) error {
		assert.Equal(t, 0, s.Len())
		seen = append(seen, e)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []Address{a, b}, seen)

	s = NewSet(a, b)
	boom := errors.New("boom")
	err = s.ForEachAndClear(func(e Address) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len())
}

func TestSetCloneIsIndependent(t *testing.T) {
	a, b := address(1, 0), address(2, 0)
	s := NewSet(a)
	clone := s.Clone()
	_, err := s.Insert(b)
	require.NoError(t, err)
	assert.Equal(t, 1, clone.Len())
}

func TestErrors(t *testing.T) {
	err := Fail(NotAuthorized, "%s may not", "someone")
	assert.True(t, IsError(err, NotAuthorized))
	assert.False(t, IsError(err, InvalidAddress))
	assert.Equal(t, NotAuthorized, ErrorCode(err))
	assert.Contains(t, err.Error(), "someone may not")

	cause := errors.New("vault said no")
	wrapped := Wrap(cause, AccountStatusViolation, "account rejected")
	assert.True(t, IsError(wrapped, AccountStatusViolation))
	assert.ErrorIs(t, wrapped, cause)

	assert.Equal(t, "", ErrorCode(cause))
	assert.False(t, IsError(nil, NotAuthorized))
}

func TestKeccakAndMagic(t *testing.T) {
	empty := Keccak256()
	assert.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", hex.EncodeToString(empty[:]))
	assert.Equal(t, "0x1626ba7e", MagicOf("isValidSignature(bytes32,bytes)").Hex())
	assert.Equal(t, "0xa9059cbb", MagicOf("transfer(address,uint256)").Hex())
}

func TestTags(t *testing.T) {
	e := nostr.Event{Tags: nostr.Tags{
		nostr.Tag{"op", "connector.nonce.used"},
		nostr.Tag{"nonce", "1"},
		nostr.Tag{"nonce", "2"},
		nostr.Tag{"flag"},
	}}
	op, ok := GetFirstTag(e, "op")
	require.True(t, ok)
	assert.Equal(t, "connector.nonce.used", op)
	_, ok = GetFirstTag(e, "account")
	assert.False(t, ok)
	assert.Equal(t, map[string]string{"op": "connector.nonce.used", "nonce": "1"}, TagMap(e))
}
