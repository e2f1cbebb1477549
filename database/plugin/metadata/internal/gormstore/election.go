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

package gormstore

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/blockballot/database/models"
	"github.com/blinklabs-io/blockballot/database/types"
	"gorm.io/gorm"
)

// GetElection returns the election row, or nil if none has been stored
func (s *Store) GetElection(txn types.Txn) (*models.Election, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Election{}
	result := db.First(ret, models.ElectionRowId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetElection stores the election row. It can only be written once.
func (s *Store) SetElection(election *models.Election, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	var count int64
	if result := db.Model(&models.Election{}).Count(&count); result.Error != nil {
		return result.Error
	}
	if count > 0 {
		return fmt.Errorf("%w: election already stored", types.ErrRowConflict)
	}
	election.ID = models.ElectionRowId
	if result := db.Create(election); result.Error != nil {
		return fmt.Errorf("create election: %w", result.Error)
	}
	return nil
}

// AddCandidate stores a newly registered candidate
func (s *Store) AddCandidate(candidate *models.Candidate, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(candidate); result.Error != nil {
		return fmt.Errorf("create candidate: %w", result.Error)
	}
	return nil
}

// GetCandidates returns all candidates ordered by ID
func (s *Store) GetCandidates(txn types.Txn) ([]models.Candidate, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Candidate
	if result := db.Order("candidate_id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// AddVote stores a vote and increments its candidate's count. Both happen
// in the caller's transaction.
func (s *Store) AddVote(vote *models.Vote, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	existing, err := s.GetVote(vote.Voter, txn)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: voter %s already has a vote", types.ErrRowConflict, vote.Voter)
	}
	if result := db.Create(vote); result.Error != nil {
		return fmt.Errorf("create vote: %w", result.Error)
	}
	result := db.Model(&models.Candidate{}).
		Where("candidate_id = ?", vote.CandidateId).
		UpdateColumn("vote_count", gorm.Expr("vote_count + ?", 1))
	if result.Error != nil {
		return fmt.Errorf("update vote count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: candidate %d not stored", types.ErrRowConflict, vote.CandidateId)
	}
	return nil
}

// GetVotes returns all votes in the order they were stored
func (s *Store) GetVotes(txn types.Txn) ([]models.Vote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Vote
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetVote returns the vote cast by voter, or nil if there is none
func (s *Store) GetVote(voter string, txn types.Txn) (*models.Vote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Vote{}
	result := db.Where("voter = ?", voter).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}
