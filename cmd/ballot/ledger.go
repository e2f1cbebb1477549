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
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/blockballot/database"
	"github.com/blinklabs-io/blockballot/election"
	"github.com/blinklabs-io/blockballot/internal/config"
	"gopkg.in/yaml.v3"
)

// ledgerSession is an election manager backed directly by the configured
// database, used by the one-shot commands
type ledgerSession struct {
	db      *database.Database
	manager *election.Manager
}

func openLedger(cfg *config.Config, logger *slog.Logger) (*ledgerSession, error) {
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		Logger:         logger,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("opening database: %w", err)
	}
	mgr, err := election.NewManager(election.ManagerConfig{
		Logger: logger,
		Store:  db,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &ledgerSession{db: db, manager: mgr}, nil
}

func (s *ledgerSession) Close() error {
	return s.db.Close()
}

// withLedger opens the ledger for the duration of fn
func withLedger(
	cfg *config.Config,
	logger *slog.Logger,
	fn func(*election.Manager) error,
) error {
	s, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	fnErr := fn(s.manager)
	if err := s.Close(); err != nil && fnErr == nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return fnErr
}

// parseTime accepts RFC 3339 timestamps or Unix seconds. An empty value
// means the current time.
func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	return time.Time{}, fmt.Errorf(
		"invalid time %q: expected RFC 3339 or Unix seconds",
		value,
	)
}

type timelineOutput struct {
	RegistrationStart time.Time `yaml:"registrationStart"`
	RegistrationStop  time.Time `yaml:"registrationStop"`
	ElectionStart     time.Time `yaml:"electionStart"`
	ElectionEnd       time.Time `yaml:"electionEnd"`
}

type electionOutput struct {
	ID                 string         `yaml:"id"`
	Administrator      string         `yaml:"administrator"`
	AdminName          string         `yaml:"adminName"`
	Title              string         `yaml:"title"`
	Description        string         `yaml:"description"`
	CoverImage         string         `yaml:"coverImage"`
	GoverningBody      string         `yaml:"governingBody"`
	Country            string         `yaml:"country"`
	GoverningBodyImage string         `yaml:"governingBodyImage"`
	Timeline           timelineOutput `yaml:"timeline"`
	Phase              string         `yaml:"phase"`
}

type candidateOutput struct {
	ID        uint64 `yaml:"id"`
	Name      string `yaml:"name"`
	Image     string `yaml:"image,omitempty"`
	VoteCount uint64 `yaml:"voteCount"`
}

type voteOutput struct {
	Voter       string    `yaml:"voter"`
	CandidateID uint64    `yaml:"candidateId"`
	Timestamp   time.Time `yaml:"timestamp"`
}

type tallyOutput struct {
	VoteCount int               `yaml:"voteCount"`
	Results   []candidateOutput `yaml:"results"`
}

func newElectionOutput(e election.Election, phase election.Phase) electionOutput {
	return electionOutput{
		ID:                 e.ID,
		Administrator:      string(e.Administrator),
		AdminName:          e.AdminName,
		Title:              e.Title,
		Description:        e.Description,
		CoverImage:         e.CoverImage,
		GoverningBody:      e.GoverningBody,
		Country:            e.Country,
		GoverningBodyImage: e.GoverningBodyImage,
		Timeline: timelineOutput{
			RegistrationStart: e.Timeline.RegistrationStart.UTC(),
			RegistrationStop:  e.Timeline.RegistrationStop.UTC(),
			ElectionStart:     e.Timeline.ElectionStart.UTC(),
			ElectionEnd:       e.Timeline.ElectionEnd.UTC(),
		},
		Phase: phase.String(),
	}
}

func newCandidateOutputs(candidates []election.Candidate) []candidateOutput {
	ret := make([]candidateOutput, 0, len(candidates))
	for _, c := range candidates {
		ret = append(ret, candidateOutput{
			ID:        uint64(c.ID),
			Name:      c.Name,
			Image:     c.ImageRef,
			VoteCount: c.VoteCount,
		})
	}
	return ret
}

func newVoteOutput(rec election.VoteRecord) voteOutput {
	return voteOutput{
		Voter:       string(rec.Voter),
		CandidateID: uint64(rec.CandidateID),
		Timestamp:   rec.Timestamp.UTC(),
	}
}

func newTallyOutput(snap election.Snapshot) tallyOutput {
	return tallyOutput{
		VoteCount: len(snap.Votes),
		Results:   newCandidateOutputs(snap.Results()),
	}
}

func writeOutput(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
