package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &StartupRecord{
		Action:        ActionCheck,
		LibraryPath:   "libcrypto.so.1.0.0",
		Version:       0x1000105f,
		VersionString: "1.0.1e",
		Threading:     "legacy",
		Acknowledged:  "no",
		Passed:        false,
		Defects:       []string{"CVE-2014-0160"},
		Error:         "refused",
	}
	require.NoError(t, s.RecordStartup(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.Empty(t, first.PrevHash)
	assert.Len(t, first.Hash, 64)

	second := &StartupRecord{
		Action:        ActionInit,
		Version:       0x30000020,
		VersionString: "3.0.2",
		Threading:     "modern",
		Acknowledged:  "yes",
		Passed:        true,
	}
	require.NoError(t, s.RecordStartup(ctx, second))
	assert.Equal(t, first.Hash, second.PrevHash)

	recs, err := s.ListStartups(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, second.ID, recs[0].ID)
	assert.Equal(t, first.ID, recs[1].ID)
	assert.Equal(t, []string{"CVE-2014-0160"}, recs[1].Defects)
	assert.Nil(t, recs[0].Defects)
	assert.Equal(t, uint64(0x1000105f), recs[1].Version)
	assert.False(t, recs[1].Passed)
	assert.True(t, recs[0].Passed)
	assert.WithinDuration(t, time.Now(), recs[0].At, time.Minute)

	recs, err = s.ListStartups(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, second.ID, recs[0].ID)
}

func TestSQLiteStore_VerifyChain(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.VerifyChain(ctx))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordStartup(ctx, &StartupRecord{
			Action: ActionInit, Version: 0x1000200f, Acknowledged: "no", Passed: true,
		}))
	}
	require.NoError(t, s.VerifyChain(ctx))

	_, err := s.db.Exec(`UPDATE startups SET acknowledged = 'yes' WHERE seq = 2`)
	require.NoError(t, err)
	assert.ErrorIs(t, s.VerifyChain(ctx), ErrChainBroken)
}

func TestSQLiteStore_BadTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RecordStartup(ctx, &StartupRecord{Action: ActionCheck, Passed: true}))

	_, err := s.db.Exec(`UPDATE startups SET at = 'yesterday' WHERE seq = 1`)
	require.NoError(t, err)

	err = s.VerifyChain(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrChainBroken))
	assert.ErrorContains(t, err, "startup 1: parse at")

	_, err = s.ListStartups(ctx, 0)
	assert.ErrorContains(t, err, "parse at")
}

func TestSQLiteStore_VerifyChainDeleted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordStartup(ctx, &StartupRecord{Action: ActionCheck, Passed: true}))
	}

	_, err := s.db.Exec(`DELETE FROM startups WHERE seq = 2`)
	require.NoError(t, err)
	assert.ErrorIs(t, s.VerifyChain(ctx), ErrChainBroken)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordStartup(ctx, &StartupRecord{Action: ActionCheck, Passed: true}))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	require.NoError(t, s.RecordStartup(ctx, &StartupRecord{Action: ActionInit, Passed: true}))
	require.NoError(t, s.VerifyChain(ctx))

	recs, err := s.ListStartups(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestRecordHash_FieldBoundaries(t *testing.T) {
	a := &StartupRecord{Acknowledged: "ab", Threading: "c"}
	b := &StartupRecord{Acknowledged: "b", Threading: "ac"}
	assert.NotEqual(t, recordHash("", a), recordHash("", b))
	assert.NotEqual(t, recordHash("x", a), recordHash("", a))
}
