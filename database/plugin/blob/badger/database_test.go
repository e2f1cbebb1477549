// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger_test

import (
	"testing"

	"github.com/blinklabs-io/blockballot/database/plugin/blob/badger"
	"github.com/blinklabs-io/blockballot/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...badger.BlobStoreBadgerOptionFunc) *badger.BlobStoreBadger {
	t.Helper()
	d := badger.New(opts...)
	require.NoError(t, d.Start())
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestSetGetDelete(t *testing.T) {
	d := newStore(t, badger.WithDataDir(""))
	txn := d.NewTransaction(true)
	require.NoError(t, d.Set(txn, []byte("k1"), []byte("v1")))
	require.NoError(t, txn.Commit())

	txn = d.NewTransaction(false)
	val, err := d.Get(txn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	_, err = d.Get(txn, []byte("missing"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.NoError(t, txn.Rollback())

	txn = d.NewTransaction(true)
	require.NoError(t, d.Delete(txn, []byte("k1")))
	require.NoError(t, txn.Commit())
	txn = d.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = d.Get(txn, []byte("k1"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	d := newStore(t)
	txn := d.NewTransaction(true)
	require.NoError(t, d.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Rollback())
	// Finished transactions are rejected
	require.Error(t, d.Set(txn, []byte("k"), []byte("v")))

	txn = d.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err := d.Get(txn, []byte("k"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestTxnValidation(t *testing.T) {
	d := newStore(t)
	other := newStore(t)
	_, err := d.Get(nil, []byte("k"))
	require.ErrorIs(t, err, types.ErrNilTxn)
	otherTxn := other.NewTransaction(false)
	defer otherTxn.Rollback() //nolint:errcheck
	_, err = d.Get(otherTxn, []byte("k"))
	require.Error(t, err)
}

func TestIteratorPrefix(t *testing.T) {
	d := newStore(t)
	txn := d.NewTransaction(true)
	for _, id := range []uint64{2, 0, 1} {
		require.NoError(t, d.Set(txn, types.CandidateBlobKey(id), []byte{byte(id)}))
	}
	require.NoError(t, d.Set(txn, types.VoteReceiptBlobKey("0xabc"), []byte("x")))
	require.NoError(t, txn.Commit())

	txn = d.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	prefix := []byte(types.CandidateBlobKeyPrefix)
	iter := d.NewIterator(txn, types.BlobIteratorOptions{Prefix: prefix})
	defer iter.Close()
	var got []byte
	for iter.Rewind(); iter.ValidForPrefix(prefix); iter.Next() {
		val, err := iter.Item().ValueCopy(nil)
		require.NoError(t, err)
		got = append(got, val...)
	}
	require.NoError(t, iter.Err())
	assert.Equal(t, []byte{0, 1, 2}, got)

	bad := d.NewIterator(nil, types.BlobIteratorOptions{})
	assert.False(t, bad.Valid())
	require.ErrorIs(t, bad.Err(), types.ErrNilTxn)
}

func TestCommitTimestamp(t *testing.T) {
	d := newStore(t)
	_, err := d.GetCommitTimestamp()
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.ErrorIs(t, d.SetCommitTimestamp(nil, 1), types.ErrNilTxn)

	txn := d.NewTransaction(true)
	require.NoError(t, d.SetCommitTimestamp(txn, 1772366400000))
	require.NoError(t, txn.Commit())
	ts, err := d.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1772366400000), ts)
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	d := badger.New(badger.WithDataDir(dir), badger.WithGc(false))
	require.NoError(t, d.Start())
	txn := d.NewTransaction(true)
	require.NoError(t, d.Set(txn, []byte(types.ElectionBlobKey), []byte("e")))
	require.NoError(t, txn.Commit())
	require.NoError(t, d.Close())

	d = newStore(t, badger.WithDataDir(dir))
	txn = d.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := d.Get(txn, []byte(types.ElectionBlobKey))
	require.NoError(t, err)
	assert.Equal(t, []byte("e"), val)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := badger.New()
	d.SetPromRegistry(reg)
	require.NoError(t, d.Start())
	defer d.Close()
	count, err := testutil.GatherAndCount(
		reg,
		"ballot_blob_lsm_size_bytes",
		"ballot_blob_vlog_size_bytes",
	)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUnstartedStore(t *testing.T) {
	d := badger.New()
	txn := d.NewTransaction(true)
	require.ErrorIs(t, d.Set(txn, []byte("k"), []byte("v")), types.ErrBlobStoreUnavailable)
	require.NoError(t, d.Close())
}
