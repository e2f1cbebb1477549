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

package models

// ElectionRowId is the primary key of the only election row
const ElectionRowId = 1

// Election is the single election row. Times are Unix nanoseconds so every
// backend stores them losslessly.
type Election struct {
	ID                 uint   `gorm:"primarykey"`
	ElectionId         string `gorm:"size:64;uniqueIndex;not null"`
	Administrator      string `gorm:"size:255;not null"`
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

func (Election) TableName() string {
	return "election"
}

// Candidate is a registered candidate and its running vote count
type Candidate struct {
	// Assigned by the election, not by the database
	CandidateId uint64 `gorm:"primaryKey;autoIncrement:false"`
	Name        string `gorm:"not null"`
	ImageRef    string
	VoteCount   uint64 `gorm:"not null;default:0"`
}

func (Candidate) TableName() string {
	return "candidate"
}

// Vote is an accepted vote. The unique voter index backs the one vote per
// identity rule in storage.
type Vote struct {
	ID          uint   `gorm:"primarykey"`
	Voter       string `gorm:"size:255;uniqueIndex;not null"`
	CandidateId uint64 `gorm:"index;not null"`
	Timestamp   int64  `gorm:"not null"`
}

func (Vote) TableName() string {
	return "vote"
}
