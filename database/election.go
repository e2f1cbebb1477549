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

package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/blockballot/database/models"
	"github.com/blinklabs-io/blockballot/database/types"
	"github.com/blinklabs-io/blockballot/election"
	"github.com/blinklabs-io/gouroboros/cbor"
)

// ErrStoreMismatch is returned when the blob records and the metadata rows
// disagree about the stored election state
var ErrStoreMismatch = errors.New("blob and metadata stores disagree")

var _ election.Store = (*Database)(nil)

// SaveElection writes the election record to both stores in one transaction
func (d *Database) SaveElection(e election.Election) error {
	record := types.ElectionRecord{
		ID:                 e.ID,
		Administrator:      string(e.Administrator),
		AdminName:          e.AdminName,
		Title:              e.Title,
		Description:        e.Description,
		CoverImage:         e.CoverImage,
		GoverningBody:      e.GoverningBody,
		Country:            e.Country,
		GoverningBodyImage: e.GoverningBodyImage,
		RegistrationStart:  e.Timeline.RegistrationStart.UnixNano(),
		RegistrationStop:   e.Timeline.RegistrationStop.UnixNano(),
		ElectionStart:      e.Timeline.ElectionStart.UnixNano(),
		ElectionEnd:        e.Timeline.ElectionEnd.UnixNano(),
	}
	recordCbor, err := cbor.Encode(&record)
	if err != nil {
		return fmt.Errorf("encode election record: %w", err)
	}
	row := &models.Election{
		ElectionId:         record.ID,
		Administrator:      record.Administrator,
		AdminName:          record.AdminName,
		Title:              record.Title,
		Description:        record.Description,
		CoverImage:         record.CoverImage,
		GoverningBody:      record.GoverningBody,
		Country:            record.Country,
		GoverningBodyImage: record.GoverningBodyImage,
		RegistrationStart:  record.RegistrationStart,
		RegistrationStop:   record.RegistrationStop,
		ElectionStart:      record.ElectionStart,
		ElectionEnd:        record.ElectionEnd,
	}
	return d.Transaction(true).Do(func(txn *Txn) error {
		if err := d.Blob().Set(txn.Blob(), []byte(types.ElectionBlobKey), recordCbor); err != nil {
			return err
		}
		return d.Metadata().SetElection(row, txn.Metadata())
	})
}

// SaveCandidate writes a newly registered candidate to both stores
func (d *Database) SaveCandidate(c election.Candidate) error {
	record := types.CandidateRecord{
		ID:       uint64(c.ID),
		Name:     c.Name,
		ImageRef: c.ImageRef,
	}
	recordCbor, err := cbor.Encode(&record)
	if err != nil {
		return fmt.Errorf("encode candidate record: %w", err)
	}
	row := &models.Candidate{
		CandidateId: record.ID,
		Name:        record.Name,
		ImageRef:    record.ImageRef,
		VoteCount:   c.VoteCount,
	}
	return d.Transaction(true).Do(func(txn *Txn) error {
		if err := d.Blob().Set(txn.Blob(), types.CandidateBlobKey(record.ID), recordCbor); err != nil {
			return err
		}
		return d.Metadata().AddCandidate(row, txn.Metadata())
	})
}

// SaveVote writes the vote receipt and increments the candidate's stored
// count in one transaction
func (d *Database) SaveVote(rec election.VoteRecord) error {
	receipt := types.VoteReceipt{
		Voter:       string(rec.Voter),
		CandidateID: uint64(rec.CandidateID),
		Timestamp:   rec.Timestamp.UnixNano(),
	}
	receiptCbor, err := cbor.Encode(&receipt)
	if err != nil {
		return fmt.Errorf("encode vote receipt: %w", err)
	}
	row := &models.Vote{
		Voter:       receipt.Voter,
		CandidateId: receipt.CandidateID,
		Timestamp:   receipt.Timestamp,
	}
	return d.Transaction(true).Do(func(txn *Txn) error {
		if err := d.Blob().Set(txn.Blob(), types.VoteReceiptBlobKey(receipt.Voter), receiptCbor); err != nil {
			return err
		}
		return d.Metadata().AddVote(row, txn.Metadata())
	})
}

// VoteReceipt returns the stored receipt for voter, or nil if none exists
func (d *Database) VoteReceipt(voter election.Identity) (*types.VoteReceipt, error) {
	txn := d.Transaction(false)
	defer txn.Release()
	data, err := d.Blob().Get(txn.Blob(), types.VoteReceiptBlobKey(string(voter)))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var receipt types.VoteReceipt
	if _, err := cbor.Decode(data, &receipt); err != nil {
		return nil, fmt.Errorf("decode vote receipt: %w", err)
	}
	return &receipt, nil
}

// LoadState reads the committed election state from the metadata store and
// checks it against the blob records
func (d *Database) LoadState() (*election.StoredState, error) {
	txn := d.Transaction(false)
	defer txn.Release()
	ret := &election.StoredState{}
	electionRow, err := d.Metadata().GetElection(txn.Metadata())
	if err != nil {
		return nil, err
	}
	if electionRow != nil {
		e := electionFromModel(electionRow)
		ret.Election = &e
	}
	candidateRows, err := d.Metadata().GetCandidates(txn.Metadata())
	if err != nil {
		return nil, err
	}
	for _, row := range candidateRows {
		ret.Candidates = append(ret.Candidates, election.Candidate{
			ID:        election.CandidateID(row.CandidateId),
			Name:      row.Name,
			ImageRef:  row.ImageRef,
			VoteCount: row.VoteCount,
		})
	}
	voteRows, err := d.Metadata().GetVotes(txn.Metadata())
	if err != nil {
		return nil, err
	}
	for _, row := range voteRows {
		ret.Votes = append(ret.Votes, election.VoteRecord{
			Voter:       election.Identity(row.Voter),
			CandidateID: election.CandidateID(row.CandidateId),
			Timestamp:   time.Unix(0, row.Timestamp).UTC(),
		})
	}
	if err := d.verifyBlobRecords(txn, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (d *Database) verifyBlobRecords(txn *Txn, state *election.StoredState) error {
	data, err := d.Blob().Get(txn.Blob(), []byte(types.ElectionBlobKey))
	switch {
	case errors.Is(err, types.ErrBlobKeyNotFound):
		if state.Election != nil {
			return fmt.Errorf("%w: election %s has no blob record", ErrStoreMismatch, state.Election.ID)
		}
	case err != nil:
		return err
	default:
		var record types.ElectionRecord
		if _, err := cbor.Decode(data, &record); err != nil {
			return fmt.Errorf("decode election record: %w", err)
		}
		if state.Election == nil || record.ID != state.Election.ID {
			return fmt.Errorf("%w: election record %s", ErrStoreMismatch, record.ID)
		}
	}
	candidates, err := d.countBlobRecords(txn, types.CandidateBlobKeyPrefix)
	if err != nil {
		return err
	}
	if candidates != len(state.Candidates) {
		return fmt.Errorf(
			"%w: %d candidate records, %d candidate rows",
			ErrStoreMismatch,
			candidates,
			len(state.Candidates),
		)
	}
	receipts, err := d.countBlobRecords(txn, types.VoteReceiptBlobKeyPrefix)
	if err != nil {
		return err
	}
	if receipts != len(state.Votes) {
		return fmt.Errorf(
			"%w: %d vote receipts, %d vote rows",
			ErrStoreMismatch,
			receipts,
			len(state.Votes),
		)
	}
	return nil
}

func (d *Database) countBlobRecords(txn *Txn, prefix string) (int, error) {
	prefixBytes := []byte(prefix)
	iter := d.Blob().NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: prefixBytes},
	)
	defer iter.Close()
	count := 0
	for iter.Rewind(); iter.ValidForPrefix(prefixBytes); iter.Next() {
		count++
	}
	return count, iter.Err()
}

func electionFromModel(row *models.Election) election.Election {
	return election.Election{
		ID:            row.ElectionId,
		Administrator: election.Identity(row.Administrator),
		ElectionParams: election.ElectionParams{
			AdminName:          row.AdminName,
			Title:              row.Title,
			Description:        row.Description,
			CoverImage:         row.CoverImage,
			GoverningBody:      row.GoverningBody,
			Country:            row.Country,
			GoverningBodyImage: row.GoverningBodyImage,
			Timeline: election.Timeline{
				RegistrationStart: time.Unix(0, row.RegistrationStart).UTC(),
				RegistrationStop:  time.Unix(0, row.RegistrationStop).UTC(),
				ElectionStart:     time.Unix(0, row.ElectionStart).UTC(),
				ElectionEnd:       time.Unix(0, row.ElectionEnd).UTC(),
			},
		},
	}
}
