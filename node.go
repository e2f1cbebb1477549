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

package blockballot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/blockballot/api"
	"github.com/blinklabs-io/blockballot/database"
	"github.com/blinklabs-io/blockballot/election"
	"github.com/blinklabs-io/blockballot/event"
)

type Node struct {
	config        Config
	db            *database.Database
	eventBus      *event.EventBus
	manager       *election.Manager
	api           *api.Server
	shutdownFuncs []func(context.Context) error
	runCtx        context.Context
	cancelRun     context.CancelFunc
	ready         chan struct{}
	done          chan struct{}
	readyOnce     sync.Once
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	runCtx, cancelRun := context.WithCancel(context.Background())
	n := &Node{
		config:    cfg,
		eventBus:  eventBus,
		runCtx:    runCtx,
		cancelRun: cancelRun,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		cancelRun()
		eventBus.Stop()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Run opens storage, restores the election and serves the API until Stop is
// called. Storage left inconsistent by an interrupted commit is reported and
// the node does not start.
func (n *Node) Run() error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dbConfig := &database.Config{
		DataDir:        n.config.dataDir,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
	}
	db, err := database.New(dbConfig)
	if db != nil {
		n.db = db
	}
	if err != nil {
		var dbErr database.CommitTimestampError
		if errors.As(err, &dbErr) {
			n.config.logger.Error(
				"database commit timestamps disagree, needs recovery",
				"error",
				err,
			)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	// Load election
	n.eventBus.SubscribeFunc(election.ElectionCreatedEventType, n.logEvent)
	n.eventBus.SubscribeFunc(election.CandidateAddedEventType, n.logEvent)
	n.eventBus.SubscribeFunc(election.VoteCastEventType, n.logEvent)
	mgr, err := election.NewManager(election.ManagerConfig{
		Logger:       n.config.logger,
		EventBus:     n.eventBus,
		PromRegistry: n.config.promRegistry,
		Store:        n.db,
	})
	if err != nil {
		return fmt.Errorf("failed to load election: %w", err)
	}
	n.manager = mgr
	// Start API
	n.api = api.New(
		api.Config{
			ListenAddress:      n.config.apiListenAddress,
			PromRegistry:       n.config.promRegistry,
			CorsAllowedOrigins: n.config.apiCorsOrigins,
		},
		n.manager,
		n.config.logger,
	)
	if err := n.api.Start(n.runCtx); err != nil {
		return err
	}
	n.readyOnce.Do(func() { close(n.ready) })

	// Wait for shutdown signal
	<-n.done
	return nil
}

// Ready is closed once Run has restored the election and started the API
func (n *Node) Ready() <-chan struct{} {
	return n.ready
}

// Manager returns the election manager once Run has loaded it
func (n *Node) Manager() *election.Manager {
	return n.manager
}

// ApiServer returns the API server once Run has started it
func (n *Node) ApiServer() *api.Server {
	return n.api
}

func (n *Node) logEvent(evt event.Event) {
	n.config.logger.Debug(
		"election event",
		"component", "node",
		"type", string(evt.Type),
		"data", fmt.Sprintf("%+v", evt.Data),
	)
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}
	// Release goroutines watching the run context
	n.cancelRun()

	// Phase 2: Deliver pending events
	n.config.logger.Debug("shutdown phase 2: draining events")

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 3: Close database
	n.config.logger.Debug("shutdown phase 3: closing database")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Cleanup resources
	n.config.logger.Debug("shutdown phase 4: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
