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

package types

import (
	"errors"

	"github.com/blinklabs-io/gouroboros/cbor"
)

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrTxnWrongType is returned when a transaction has the wrong type
var ErrTxnWrongType = errors.New("invalid transaction type")

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrNoStoreAvailable is returned when no blob or metadata store is available
var ErrNoStoreAvailable = errors.New("no store available")

// ErrBlobStoreUnavailable is returned when blob store cannot be accessed
var ErrBlobStoreUnavailable = errors.New("blob store unavailable")

// ErrRowConflict is returned by the metadata store when a write would break
// a uniqueness or singleton constraint
var ErrRowConflict = errors.New("row conflict")

// BlobItem represents a value returned by an iterator
type BlobItem interface {
	Key() []byte
	ValueCopy(dst []byte) ([]byte, error)
}

// BlobIterator provides key iteration over the blob store.
//
// Items returned by Item() must only be accessed while the transaction used
// to create the iterator is still active.
type BlobIterator interface {
	Rewind()
	Valid() bool
	ValidForPrefix(prefix []byte) bool
	Next()
	Item() BlobItem
	Close()
	Err() error
}

// BlobIteratorOptions configures blob iterator creation
type BlobIteratorOptions struct {
	Prefix []byte
}

// Txn is a simple transaction handle for commit/rollback only.
// Database layer (Txn) coordinates metadata and blob operations separately.
type Txn interface {
	Commit() error
	Rollback() error
}

// ElectionRecord is the canonical blob encoding of the election. Times are
// Unix nanoseconds.
type ElectionRecord struct {
	cbor.StructAsArray
	ID                 string
	Administrator      string
	AdminName          string
	Title              string
	Description        string
	CoverImage         string
	GoverningBody      string
	Country            string
	GoverningBodyImage string
	RegistrationStart  int64
	RegistrationStop   int64
	ElectionStart      int64
	ElectionEnd        int64
}

// CandidateRecord is the blob encoding of a registered candidate. Vote counts
// live in the metadata store only.
type CandidateRecord struct {
	cbor.StructAsArray
	ID       uint64
	Name     string
	ImageRef string
}

// VoteReceipt is the blob encoding of an accepted vote
type VoteReceipt struct {
	cbor.StructAsArray
	Voter       string
	CandidateID uint64
	Timestamp   int64
}
