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

package election

import "strings"

// Identity is an authenticated caller identity supplied by the invocation layer
type Identity string

// ElectionParams are the administrator-supplied fields of a new election
type ElectionParams struct {
	AdminName          string
	Title              string
	Description        string
	CoverImage         string
	GoverningBody      string
	Country            string
	GoverningBodyImage string
	Timeline           Timeline
}

func (p ElectionParams) validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"admin name", p.AdminName},
		{"title", p.Title},
		{"description", p.Description},
		{"cover image", p.CoverImage},
		{"governing body", p.GoverningBody},
		{"country", p.Country},
		{"governing body image", p.GoverningBodyImage},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return invalidInputf("%s is empty", f.name)
		}
	}
	return nil
}

// Election is the singleton record of one election instance
type Election struct {
	ID            string
	Administrator Identity
	ElectionParams
}
