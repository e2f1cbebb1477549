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

package main

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/blockballot/election"
	"github.com/blinklabs-io/blockballot/internal/config"
)

var testStart = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func at(offset time.Duration) string {
	return testStart.Add(offset).Format(time.RFC3339)
}

func testLedgerConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabasePath:   t.TempDir(),
		BlobPlugin:     config.DefaultBlobPlugin,
		MetadataPlugin: config.DefaultMetadataPlugin,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testCreateOptions() electionCreateOptions {
	return electionCreateOptions{
		caller:             "admin",
		adminName:          "Returning Officer",
		title:              "Board Election",
		description:        "Annual board election",
		coverImage:         "ipfs://cover",
		governingBody:      "Electoral Commission",
		country:            "Kenya",
		governingBodyImage: "ipfs://commission",
		registrationStart:  at(0),
		registrationStop:   at(time.Hour),
		electionStart:      at(2 * time.Hour),
		electionEnd:        at(3 * time.Hour),
	}
}

func decodeOutput[T any](t *testing.T, buf *bytes.Buffer) T {
	t.Helper()
	var ret T
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &ret))
	buf.Reset()
	return ret
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2026-05-01T09:00:00Z")
	require.NoError(t, err)
	assert.True(t, testStart.Equal(got))

	got, err = parseTime("1777626000")
	require.NoError(t, err)
	assert.Equal(t, int64(1777626000), got.Unix())

	before := time.Now()
	got, err = parseTime("")
	require.NoError(t, err)
	assert.False(t, got.Before(before))

	_, err = parseTime("next tuesday")
	require.Error(t, err)
}

func TestElectionCreateRequiresTimeline(t *testing.T) {
	opts := testCreateOptions()
	opts.electionEnd = ""
	err := runElectionCreate(testLedgerConfig(t), discardLogger(), io.Discard, opts)
	require.ErrorContains(t, err, "--election-end")
}

// TestScriptedLifecycle runs the deployment sequence: create the election,
// register candidates, then vote and tally across separate invocations
func TestScriptedLifecycle(t *testing.T) {
	cfg := testLedgerConfig(t)
	logger := discardLogger()
	var out bytes.Buffer

	require.NoError(t, runElectionCreate(cfg, logger, &out, testCreateOptions()))
	created := decodeOutput[electionOutput](t, &out)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "admin", created.Administrator)

	// Second creation is rejected
	err := runElectionCreate(cfg, logger, io.Discard, testCreateOptions())
	require.ErrorIs(t, err, election.ErrAlreadyInitialized)

	require.NoError(t, runElectionShow(cfg, logger, &out, at(30*time.Minute)))
	shown := decodeOutput[electionOutput](t, &out)
	assert.Equal(t, created.ID, shown.ID)
	assert.Equal(t, "Registration", shown.Phase)

	err = runCandidateAdd(cfg, logger, io.Discard, "mallory", at(30*time.Minute), "Eve", "")
	require.ErrorIs(t, err, election.ErrNotAdministrator)
	for i, name := range []string{"Alice", "Bob"} {
		require.NoError(t, runCandidateAdd(cfg, logger, &out, "admin", at(30*time.Minute), name, "ipfs://"+name))
		c := decodeOutput[candidateOutput](t, &out)
		assert.Equal(t, uint64(i), c.ID)
	}
	err = runCandidateAdd(cfg, logger, io.Discard, "admin", at(time.Hour), "Carol", "")
	require.ErrorIs(t, err, election.ErrPhaseViolation)

	require.NoError(t, runCandidateList(cfg, logger, &out))
	list := decodeOutput[[]candidateOutput](t, &out)
	require.Len(t, list, 2)
	assert.Equal(t, "Bob", list[1].Name)

	err = runVote(cfg, logger, io.Discard, "voter-1", at(90*time.Minute), "0")
	require.ErrorIs(t, err, election.ErrPhaseViolation)
	require.NoError(t, runVote(cfg, logger, &out, "voter-1", at(150*time.Minute), "1"))
	vote := decodeOutput[voteOutput](t, &out)
	assert.Equal(t, "voter-1", vote.Voter)
	assert.Equal(t, uint64(1), vote.CandidateID)
	// The same signer voting again is rejected
	err = runVote(cfg, logger, io.Discard, "voter-1", at(151*time.Minute), "0")
	require.ErrorIs(t, err, election.ErrAlreadyVoted)
	require.NoError(t, runVote(cfg, logger, &out, "voter-2", at(152*time.Minute), "1"))
	out.Reset()
	err = runVote(cfg, logger, io.Discard, "voter-3", at(152*time.Minute), "9")
	require.ErrorIs(t, err, election.ErrCandidateNotFound)
	err = runVote(cfg, logger, io.Discard, "voter-3", at(152*time.Minute), "first")
	require.ErrorIs(t, err, election.ErrInvalidInput)

	require.NoError(t, runTally(cfg, logger, &out))
	tally := decodeOutput[tallyOutput](t, &out)
	assert.Equal(t, 2, tally.VoteCount)
	require.Len(t, tally.Results, 2)
	assert.Equal(t, "Bob", tally.Results[0].Name)
	assert.Equal(t, uint64(2), tally.Results[0].VoteCount)
	assert.Equal(t, uint64(0), tally.Results[1].VoteCount)

	require.NoError(t, runReceipt(cfg, logger, &out, "voter-2"))
	receipt := decodeOutput[voteOutput](t, &out)
	assert.Equal(t, "voter-2", receipt.Voter)
	assert.Equal(t, uint64(1), receipt.CandidateID)
	assert.True(t, receipt.Timestamp.Equal(testStart.Add(152*time.Minute)))
	err = runReceipt(cfg, logger, io.Discard, "voter-3")
	require.Error(t, err)
}

func TestElectionShowNotInitialized(t *testing.T) {
	err := runElectionShow(testLedgerConfig(t), discardLogger(), io.Discard, "")
	require.ErrorIs(t, err, election.ErrNotInitialized)
}

func TestListAllPlugins(t *testing.T) {
	out := listAllPlugins()
	assert.Contains(t, out, "badger")
	assert.Contains(t, out, "sqlite")
	assert.Contains(t, out, "postgres")
	assert.Contains(t, out, "mysql")

	shouldExit, output := listPlugins("list", "sqlite")
	assert.True(t, shouldExit)
	assert.Contains(t, output, "Available blob plugins")
	assert.NotContains(t, output, "Available metadata plugins")

	shouldExit, _ = listPlugins("badger", "sqlite")
	assert.False(t, shouldExit)
}

func TestRootCommandTally(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configFile = ""
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--database-path", t.TempDir(), "tally"})
	require.NoError(t, cmd.Execute())
	tally := decodeOutput[tallyOutput](t, &out)
	assert.Zero(t, tally.VoteCount)
	assert.Empty(t, tally.Results)
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configFile = ""
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), programName)
}
