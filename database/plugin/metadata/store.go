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

package metadata

import (
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/blockballot/database/models"
	"github.com/blinklabs-io/blockballot/database/plugin"
	"github.com/blinklabs-io/blockballot/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	// Register built-in metadata plugins
	_ "github.com/blinklabs-io/blockballot/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/blockballot/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/blockballot/database/plugin/metadata/sqlite"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(types.Txn, int64) error
	Transaction() types.Txn

	// Election state
	GetElection(types.Txn) (*models.Election, error)
	SetElection(*models.Election, types.Txn) error
	AddCandidate(*models.Candidate, types.Txn) error
	GetCandidates(types.Txn) ([]models.Candidate, error)
	AddVote(*models.Vote, types.Txn) error
	GetVotes(types.Txn) ([]models.Vote, error)
	GetVote(string, types.Txn) (*models.Vote, error)
}

// New returns the started metadata plugin selected by name
func New(
	pluginName string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	p, err := plugin.StartPlugin(
		plugin.PluginTypeMetadata,
		pluginName,
		logger,
		promRegistry,
	)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
