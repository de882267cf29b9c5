package libtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avaropoint/tlsguard/internal/cryptolib"
)

func TestLibrary_RecordsCalls(t *testing.T) {
	l := New(0x1000106f)
	l.LoadErrorStrings()
	l.LibraryInit()
	l.LoadErrorStrings()

	assert.Equal(t, []string{CallLoadErrorStrings, CallLibraryInit, CallLoadErrorStrings}, l.Calls())
	assert.Equal(t, 2, l.Count(CallLoadErrorStrings))

	l.Reset()
	assert.Empty(t, l.Calls())
}

func TestLibrary_RANDEngine(t *testing.T) {
	l := New(0x1000106f)
	assert.Nil(t, l.DefaultRANDEngine())

	l.RANDEngine = "rdrand"
	e := l.DefaultRANDEngine()
	require.NotNil(t, e)
	assert.Equal(t, "rdrand", e.ID)
	assert.Equal(t, 1, l.LiveEngineRefs())

	l.UnregisterRAND(e)
	l.ReleaseEngine(e)
	assert.True(t, l.RANDUnregistered())
	assert.Nil(t, l.DefaultRANDEngine())
	assert.Zero(t, l.LiveEngineRefs())

	l.EngineCleanup()
	assert.NotNil(t, l.DefaultRANDEngine())
}

func TestLibrary_SHA256(t *testing.T) {
	l := New(0x1000106f)
	assert.False(t, l.HasDigest("sha256"))
	assert.True(t, l.HasDigest("md5"))
	l.AddDigestSHA256()
	assert.True(t, l.HasDigest("sha256"))
	l.EVPCleanup()
	assert.False(t, l.HasDigest("sha256"))
}

func TestLibrary_InitCrypto(t *testing.T) {
	l := New(0x30000020)
	l.InitCryptoErr = errors.New("boom")
	err := l.InitCrypto(cryptolib.InitLoadConfig)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, cryptolib.InitLoadConfig, l.InitFlags())
}

func TestLibrary_ProbeOnClear(t *testing.T) {
	l := New(0x1000106f)
	l.Locks = 3
	l.ProbeOnClear = true

	var seen []int
	l.SetThreadCallbacks(func() uint64 { return 1 }, func(mode, n int) {
		if mode&cryptolib.LockModeLock != 0 {
			seen = append(seen, n)
		}
	})
	id, lock := l.Callbacks()
	require.NotNil(t, id)
	require.NotNil(t, lock)

	l.SetThreadCallbacks(nil, nil)
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.Nil(t, l.ProbePanic())

	id, lock = l.Callbacks()
	assert.Nil(t, id)
	assert.Nil(t, lock)
	assert.Equal(t, []string{CallSetCallbacks, CallClearCallbacks}, l.Calls())
}
