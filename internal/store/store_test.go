// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brendacyc/brendacyc/internal/brenda"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func seedRecords(t *testing.T, s *Store) Snapshot {
	t.Helper()
	snap := Snapshot{
		ImportID:   "imp-1",
		Source:     "brenda_sample.txt",
		ImportedAt: time.Now().UTC(),
		Enzymes:    2,
		Records:    3,
	}
	recs := []brenda.Record{
		{EC: "1.1.1.1", Field: "PROTEIN", Description: "PR\t#1# Homo sapiens\n"},
		{EC: "1.1.1.1", Field: "RECOMMENDED_NAME", Description: "RN\tAlcohol Dehydrogenase\n"},
		{EC: "1.1.1.2", Field: "RECOMMENDED_NAME", Description: "RN\talcohol dehydrogenase (NADP+)\n"},
	}
	require.NoError(t, s.ReplaceRecords(context.Background(), snap, recs))
	return snap
}

func TestReplaceAndGetEnzyme(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s)

	recs, err := s.GetEnzyme(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Equal(t, "1.1.1.1", rec.EC)
	}
}

func TestGetEnzymePrefixDoesNotBleed(t *testing.T) {
	s := newTestStore(t)
	snap := Snapshot{ImportID: "imp-2"}
	recs := []brenda.Record{
		{EC: "1.1.1.1", Field: "PROTEIN"},
		{EC: "1.1.1.11", Field: "PROTEIN"},
	}
	require.NoError(t, s.ReplaceRecords(context.Background(), snap, recs))

	got, err := s.GetEnzyme(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1.1.1.1", got[0].EC)
}

func TestGetEnzymeNotFound(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s)

	_, err := s.GetEnzyme(context.Background(), "9.9.9.9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetField(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s)

	rec, err := s.GetField(context.Background(), "1.1.1.1", "PROTEIN")
	require.NoError(t, err)
	assert.Equal(t, "PR\t#1# Homo sapiens\n", rec.Description)

	_, err = s.GetField(context.Background(), "1.1.1.1", "KM_VALUE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceDropsOldRecords(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s)

	next := []brenda.Record{{EC: "2.7.1.1", Field: "RECOMMENDED_NAME", Description: "RN\thexokinase\n"}}
	require.NoError(t, s.ReplaceRecords(context.Background(), Snapshot{ImportID: "imp-2"}, next))

	_, err := s.GetEnzyme(context.Background(), "1.1.1.1")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetEnzyme(context.Background(), "2.7.1.1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReplaceCancelledKeepsExistingRecords(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	next := []brenda.Record{{EC: "2.7.1.1", Field: "RECOMMENDED_NAME", Description: "RN\thexokinase\n"}}
	err := s.ReplaceRecords(ctx, Snapshot{ImportID: "imp-aborted"}, next)
	require.ErrorIs(t, err, context.Canceled)

	// the previous dataset stays readable after the aborted replace
	recs, err := s.GetEnzyme(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "imp-1", snap.ImportID)
}

func TestScanRecordsSkipsUndecodableValues(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s)

	require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey("3.1.1.3", "PROTEIN"), []byte("{not json"))
	}))

	var got []brenda.Record
	require.NoError(t, s.ScanRecords(context.Background(), func(rec brenda.Record) error {
		got = append(got, rec)
		return nil
	}))
	assert.Len(t, got, 3)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	want := seedRecords(t, s)
	got, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.ImportID, got.ImportID)
	assert.Equal(t, want.Records, got.Records)
}

func TestSearchIsCaseFolded(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s)

	got, err := s.Search(context.Background(), "ALCOHOL DEHYDROGENASE", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Search(context.Background(), "alcohol", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImportLease(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.TryAcquireImportLease(ctx, "owner-a", time.Minute))
	err := s.TryAcquireImportLease(ctx, "owner-b", time.Minute)
	assert.ErrorIs(t, err, ErrImportLeaseHeld)

	// releasing with the wrong owner keeps the lease
	require.NoError(t, s.ReleaseImportLease(ctx, "owner-b"))
	err = s.TryAcquireImportLease(ctx, "owner-b", time.Minute)
	assert.ErrorIs(t, err, ErrImportLeaseHeld)

	require.NoError(t, s.ReleaseImportLease(ctx, "owner-a"))
	require.NoError(t, s.TryAcquireImportLease(ctx, "owner-b", time.Minute))
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
	seedRecords(t, s)
	assert.NoError(t, s.Ping(context.Background()))
}
