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

package database_test

import (
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/blockballot/database"
	"github.com/blinklabs-io/blockballot/database/types"
	"github.com/blinklabs-io/blockballot/election"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const admin election.Identity = "0xE122199bB9617d8B0e814aC903042990155015b4"

var t0 = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return t0.Add(time.Duration(seconds) * time.Second)
}

func testParams() election.ElectionParams {
	return election.ElectionParams{
		AdminName:          "Admin Name",
		Title:              "Election Title",
		Description:        "Election Description",
		CoverImage:         "https://example.com/election-cover.jpg",
		GoverningBody:      "Governing Body",
		Country:            "Country",
		GoverningBodyImage: "https://example.com/governing-body.jpg",
		Timeline: election.Timeline{
			RegistrationStart: t0,
			RegistrationStop:  at(3600),
			ElectionStart:     at(7200),
			ElectionEnd:       at(14400),
		},
	}
}

func newTestDatabase(t *testing.T, dataDir string) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	return db
}

// populate runs a short election through a manager backed by db
func populate(t *testing.T, db *database.Database) *election.Manager {
	t.Helper()
	m, err := election.NewManager(election.ManagerConfig{Store: db})
	require.NoError(t, err)
	_, err = m.CreateElection(admin, testParams())
	require.NoError(t, err)
	_, err = m.AddCandidate(admin, at(10), "Alice", "ipfs://alice")
	require.NoError(t, err)
	_, err = m.AddCandidate(admin, at(20), "Bob", "")
	require.NoError(t, err)
	_, err = m.Vote("0xV1", at(7300), 1)
	require.NoError(t, err)
	_, err = m.Vote("0xV2", at(7400), 1)
	require.NoError(t, err)
	_, err = m.Vote("0xV3", at(7500), 0)
	require.NoError(t, err)
	return m
}

func TestEmptyDatabase(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	state, err := db.LoadState()
	require.NoError(t, err)
	assert.Nil(t, state.Election)
	assert.Empty(t, state.Candidates)
	assert.Empty(t, state.Votes)
}

func TestRestoreFromDisk(t *testing.T) {
	dir := t.TempDir()
	db := newTestDatabase(t, dir)
	orig := populate(t, db)
	require.NoError(t, db.Close())

	db = newTestDatabase(t, dir)
	defer db.Close()
	restored, err := election.NewManager(election.ManagerConfig{Store: db})
	require.NoError(t, err)

	origElection, err := orig.Election()
	require.NoError(t, err)
	restoredElection, err := restored.Election()
	require.NoError(t, err)
	assert.Equal(t, origElection, restoredElection)
	assert.Equal(t, orig.Candidates(), restored.Candidates())
	assert.Equal(t, orig.Tally(), restored.Tally())
	assert.Equal(t, 3, restored.VoteCount())
	rec, ok := restored.VoteRecord("0xV2")
	require.True(t, ok)
	assert.Equal(t, election.CandidateID(1), rec.CandidateID)
	assert.True(t, rec.Timestamp.Equal(at(7400)))

	// The restored instance keeps enforcing the rules
	_, err = restored.Vote("0xV1", at(7600), 0)
	require.ErrorIs(t, err, election.ErrAlreadyVoted)
	_, err = restored.CreateElection(admin, testParams())
	require.ErrorIs(t, err, election.ErrAlreadyInitialized)
}

func TestFarFutureTimelineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db := newTestDatabase(t, dir)
	m, err := election.NewManager(election.ManagerConfig{Store: db})
	require.NoError(t, err)

	params := testParams()
	params.Timeline.ElectionEnd = time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = m.CreateElection(admin, params)
	require.ErrorIs(t, err, election.ErrInvalidTimeline)

	params.Timeline.ElectionEnd = time.Date(2262, 4, 1, 0, 0, 0, 0, time.UTC)
	created, err := m.CreateElection(admin, params)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db = newTestDatabase(t, dir)
	defer db.Close()
	restored, err := election.NewManager(election.ManagerConfig{Store: db})
	require.NoError(t, err)
	restoredElection, err := restored.Election()
	require.NoError(t, err)
	assert.Equal(t, created, restoredElection)
	phase, err := restored.Phase(time.Date(2262, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, election.PhaseVoting, phase)
}

func TestVoteReceipt(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	populate(t, db)
	receipt, err := db.VoteReceipt("0xV3")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "0xV3", receipt.Voter)
	assert.Equal(t, uint64(0), receipt.CandidateID)
	assert.Equal(t, at(7500).UnixNano(), receipt.Timestamp)

	receipt, err = db.VoteReceipt("0xNobody")
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestDuplicateVoteRejectedByStore(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	populate(t, db)
	err := db.SaveVote(election.VoteRecord{Voter: "0xV1", CandidateID: 0, Timestamp: at(7700)})
	require.ErrorIs(t, err, types.ErrRowConflict)
	// Nothing from the failed transaction is visible
	state, err := db.LoadState()
	require.NoError(t, err)
	assert.Len(t, state.Votes, 3)
	assert.Equal(t, uint64(1), state.Candidates[0].VoteCount)
}

func TestSecondElectionRejectedByStore(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	populate(t, db)
	e := election.Election{ID: "other", Administrator: admin, ElectionParams: testParams()}
	require.ErrorIs(t, db.SaveElection(e), types.ErrRowConflict)
	state, err := db.LoadState()
	require.NoError(t, err)
	require.NotNil(t, state.Election)
	assert.NotEqual(t, "other", state.Election.ID)
}

func TestStoreMismatch(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	populate(t, db)
	txn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().Delete(txn, types.VoteReceiptBlobKey("0xV1")))
	require.NoError(t, txn.Commit())
	_, err := db.LoadState()
	require.ErrorIs(t, err, database.ErrStoreMismatch)
	_, err = election.NewManager(election.ManagerConfig{Store: db})
	require.ErrorIs(t, err, database.ErrStoreMismatch)
}

func TestCommitTimestampMismatch(t *testing.T) {
	dir := t.TempDir()
	db := newTestDatabase(t, dir)
	populate(t, db)
	txn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(txn, 1))
	require.NoError(t, txn.Commit())
	require.NoError(t, db.Close())

	db, err := database.New(&database.Config{DataDir: dir})
	require.Error(t, err)
	var tsErr database.CommitTimestampError
	require.True(t, errors.As(err, &tsErr))
	assert.Equal(t, int64(1), tsErr.BlobTimestamp)
	// The database is still returned for recovery
	require.NotNil(t, db)
	require.NoError(t, db.Close())
}

func TestTxnDoRollsBack(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	testErr := errors.New("boom")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.Blob().Set(txn.Blob(), []byte("k"), []byte("v")); err != nil {
			return err
		}
		return testErr
	})
	require.ErrorIs(t, err, testErr)
	txn := db.Transaction(false)
	defer txn.Release()
	_, err = db.Blob().Get(txn.Blob(), []byte("k"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestUnknownPlugin(t *testing.T) {
	_, err := database.New(&database.Config{BlobPlugin: "nope"})
	require.Error(t, err)
	_, err = database.New(&database.Config{MetadataPlugin: "nope"})
	require.Error(t, err)
}
