package actors

import (
	"io"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"))
}

func useTempRoot(t *testing.T) {
	conf := viper.New()
	SetDefaults(conf)
	conf.Set("rootDir", t.TempDir()+"/")
	SetConfig(conf)
}

func TestFlatFiles(t *testing.T) {
	useTempRoot(t)
	_, ok := Open("connector", "current")
	assert.False(t, ok)

	require.NoError(t, Write("connector", "current", []byte(`{"a":1}`)))
	require.NoError(t, Write("connector", "current", []byte(`{"a":2}`)))
	f, ok := Open("connector", "current")
	require.True(t, ok)
	defer f.Close()
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(b))
}

func TestWallets(t *testing.T) {
	w, err := NewWallet()
	require.NoError(t, err)
	assert.False(t, w.Account.IsZero())

	again, err := WalletFromSeedWords(w.SeedWords)
	require.NoError(t, err)
	assert.Equal(t, w, again)

	fromKey, err := WalletFromPrivateKey(w.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, w.Account, fromKey.Account)

	_, err = WalletFromPrivateKey("not hex")
	assert.Error(t, err)
}

func TestLoadOrCreateWallet(t *testing.T) {
	useTempRoot(t)
	w, err := LoadOrCreateWallet("signer")
	require.NoError(t, err)
	loaded, err := LoadOrCreateWallet("signer")
	require.NoError(t, err)
	assert.Equal(t, w, loaded)

	other, err := LoadOrCreateWallet("other")
	require.NoError(t, err)
	assert.NotEqual(t, w.Account, other.Account)
}
