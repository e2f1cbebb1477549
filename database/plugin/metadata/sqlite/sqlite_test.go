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

package sqlite_test

import (
	"testing"

	"github.com/blinklabs-io/blockballot/database/models"
	"github.com/blinklabs-io/blockballot/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/blockballot/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.MetadataStoreSqlite {
	t.Helper()
	store, err := sqlite.New("", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testElection() *models.Election {
	return &models.Election{
		ElectionId:        "1b0c7c55-bd0e-4a5a-8c4b-000000000001",
		Administrator:     "0xadmin",
		Title:             "Board",
		RegistrationStart: 1,
		RegistrationStop:  2,
		ElectionStart:     3,
		ElectionEnd:       4,
	}
}

func TestElectionSingleton(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetElection(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.SetElection(testElection(), nil))
	got, err = store.GetElection(nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Board", got.Title)
	assert.Equal(t, int64(4), got.ElectionEnd)

	err = store.SetElection(testElection(), nil)
	require.ErrorIs(t, err, types.ErrRowConflict)
}

func TestVotesUpdateCounts(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddCandidate(&models.Candidate{CandidateId: 0, Name: "Alice"}, nil))
	require.NoError(t, store.AddCandidate(&models.Candidate{CandidateId: 1, Name: "Bob"}, nil))

	txn := store.Transaction()
	require.NoError(t, store.AddVote(&models.Vote{Voter: "v1", CandidateId: 1, Timestamp: 10}, txn))
	require.NoError(t, store.AddVote(&models.Vote{Voter: "v2", CandidateId: 1, Timestamp: 11}, txn))
	require.NoError(t, txn.Commit())

	candidates, err := store.GetCandidates(nil)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, uint64(0), candidates[0].VoteCount)
	assert.Equal(t, uint64(2), candidates[1].VoteCount)

	err = store.AddVote(&models.Vote{Voter: "v1", CandidateId: 0, Timestamp: 12}, nil)
	require.ErrorIs(t, err, types.ErrRowConflict)
	err = store.AddVote(&models.Vote{Voter: "v3", CandidateId: 9, Timestamp: 12}, nil)
	require.ErrorIs(t, err, types.ErrRowConflict)

	vote, err := store.GetVote("v2", nil)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, uint64(1), vote.CandidateId)
	vote, err = store.GetVote("nobody", nil)
	require.NoError(t, err)
	assert.Nil(t, vote)
}

func TestRollback(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddCandidate(&models.Candidate{CandidateId: 0, Name: "Alice"}, nil))
	txn := store.Transaction()
	require.NoError(t, store.AddVote(&models.Vote{Voter: "v1", CandidateId: 0, Timestamp: 10}, txn))
	require.NoError(t, txn.Rollback())
	// Finished transactions are rejected
	require.Error(t, store.AddVote(&models.Vote{Voter: "v2", CandidateId: 0}, txn))

	votes, err := store.GetVotes(nil)
	require.NoError(t, err)
	assert.Empty(t, votes)
	candidates, err := store.GetCandidates(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), candidates[0].VoteCount)
}

func TestCommitTimestamp(t *testing.T) {
	store := newTestStore(t)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)
	require.NoError(t, store.SetCommitTimestamp(nil, 5))
	require.NoError(t, store.SetCommitTimestamp(nil, 7))
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(7), ts)
}

func TestIsolatedInMemoryStores(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)
	require.NoError(t, a.SetElection(testElection(), nil))
	got, err := b.GetElection(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	store, err := sqlite.New(dir, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.SetElection(testElection(), nil))
	require.NoError(t, store.Close())

	store, err = sqlite.New(dir, nil, nil)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.GetElection(nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0xadmin", got.Administrator)
}
