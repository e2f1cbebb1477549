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
	"time"

	"github.com/blinklabs-io/blockballot/election"
	"github.com/blinklabs-io/blockballot/internal/config"
	"github.com/spf13/cobra"
)

type electionCreateOptions struct {
	caller             string
	adminName          string
	title              string
	description        string
	coverImage         string
	governingBody      string
	country            string
	governingBodyImage string
	registrationStart  string
	registrationStop   string
	electionStart      string
	electionEnd        string
}

func (o electionCreateOptions) params() (election.ElectionParams, error) {
	var times [4]time.Time
	for i, v := range []struct {
		flag  string
		value string
	}{
		{"registration-start", o.registrationStart},
		{"registration-stop", o.registrationStop},
		{"election-start", o.electionStart},
		{"election-end", o.electionEnd},
	} {
		if v.value == "" {
			return election.ElectionParams{}, fmt.Errorf("--%s is required", v.flag)
		}
		t, err := parseTime(v.value)
		if err != nil {
			return election.ElectionParams{}, fmt.Errorf("--%s: %w", v.flag, err)
		}
		times[i] = t
	}
	return election.ElectionParams{
		AdminName:          o.adminName,
		Title:              o.title,
		Description:        o.description,
		CoverImage:         o.coverImage,
		GoverningBody:      o.governingBody,
		Country:            o.country,
		GoverningBodyImage: o.governingBodyImage,
		Timeline: election.Timeline{
			RegistrationStart: times[0],
			RegistrationStop:  times[1],
			ElectionStart:     times[2],
			ElectionEnd:       times[3],
		},
	}, nil
}

func runElectionCreate(
	cfg *config.Config,
	logger *slog.Logger,
	w io.Writer,
	opts electionCreateOptions,
) error {
	params, err := opts.params()
	if err != nil {
		return err
	}
	return withLedger(cfg, logger, func(m *election.Manager) error {
		e, err := m.CreateElection(election.Identity(opts.caller), params)
		if err != nil {
			return err
		}
		phase, err := m.Phase(time.Now())
		if err != nil {
			return err
		}
		return writeOutput(w, newElectionOutput(e, phase))
	})
}

func runElectionShow(
	cfg *config.Config,
	logger *slog.Logger,
	w io.Writer,
	at string,
) error {
	now, err := parseTime(at)
	if err != nil {
		return err
	}
	return withLedger(cfg, logger, func(m *election.Manager) error {
		e, err := m.Election()
		if err != nil {
			return err
		}
		phase, err := m.Phase(now)
		if err != nil {
			return err
		}
		return writeOutput(w, newElectionOutput(e, phase))
	})
}

func runCandidateAdd(
	cfg *config.Config,
	logger *slog.Logger,
	w io.Writer,
	caller string,
	at string,
	name string,
	image string,
) error {
	now, err := parseTime(at)
	if err != nil {
		return err
	}
	return withLedger(cfg, logger, func(m *election.Manager) error {
		id, err := m.AddCandidate(election.Identity(caller), now, name, image)
		if err != nil {
			return err
		}
		return writeOutput(w, candidateOutput{
			ID:    uint64(id),
			Name:  name,
			Image: image,
		})
	})
}

func runCandidateList(
	cfg *config.Config,
	logger *slog.Logger,
	w io.Writer,
) error {
	return withLedger(cfg, logger, func(m *election.Manager) error {
		return writeOutput(w, newCandidateOutputs(m.Candidates()))
	})
}

func runVote(
	cfg *config.Config,
	logger *slog.Logger,
	w io.Writer,
	caller string,
	at string,
	candidate string,
) error {
	now, err := parseTime(at)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(candidate, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: candidate id %q", election.ErrInvalidInput, candidate)
	}
	return withLedger(cfg, logger, func(m *election.Manager) error {
		rec, err := m.Vote(election.Identity(caller), now, election.CandidateID(id))
		if err != nil {
			return err
		}
		return writeOutput(w, newVoteOutput(rec))
	})
}

func runTally(
	cfg *config.Config,
	logger *slog.Logger,
	w io.Writer,
) error {
	return withLedger(cfg, logger, func(m *election.Manager) error {
		return writeOutput(w, newTallyOutput(m.Snapshot()))
	})
}

// runReceipt prints the vote receipt held in the blob store for voter
func runReceipt(
	cfg *config.Config,
	logger *slog.Logger,
	w io.Writer,
	voter string,
) error {
	s, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	receipt, err := s.db.VoteReceipt(election.Identity(voter))
	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("closing database: %w", closeErr)
	}
	if err != nil {
		return err
	}
	if receipt == nil {
		return fmt.Errorf("no vote receipt for %q", voter)
	}
	return writeOutput(w, voteOutput{
		Voter:       receipt.Voter,
		CandidateID: receipt.CandidateID,
		Timestamp:   time.Unix(0, receipt.Timestamp).UTC(),
	})
}

func electionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "election",
		Short: "Create or inspect the election",
	}
	var opts electionCreateOptions
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the election with the caller as administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			return runElectionCreate(cfg, commandLogger(), cmd.OutOrStdout(), opts)
		},
	}
	flags := createCmd.Flags()
	flags.StringVar(&opts.caller, "caller", "", "administrator identity")
	flags.StringVar(&opts.adminName, "admin-name", "", "administrator display name")
	flags.StringVar(&opts.title, "title", "", "election title")
	flags.StringVar(&opts.description, "description", "", "election description")
	flags.StringVar(&opts.coverImage, "cover-image", "", "cover image reference")
	flags.StringVar(&opts.governingBody, "governing-body", "", "governing body name")
	flags.StringVar(&opts.country, "country", "", "country")
	flags.StringVar(&opts.governingBodyImage, "governing-body-image", "", "governing body image reference")
	flags.StringVar(&opts.registrationStart, "registration-start", "", "registration start (RFC 3339 or Unix seconds)")
	flags.StringVar(&opts.registrationStop, "registration-stop", "", "registration stop (RFC 3339 or Unix seconds)")
	flags.StringVar(&opts.electionStart, "election-start", "", "voting start (RFC 3339 or Unix seconds)")
	flags.StringVar(&opts.electionEnd, "election-end", "", "voting end (RFC 3339 or Unix seconds)")

	var showAt string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the election and its current phase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			return runElectionShow(cfg, commandLogger(), cmd.OutOrStdout(), showAt)
		},
	}
	showCmd.Flags().StringVar(&showAt, "at", "", "evaluate the phase at this time instead of now")

	cmd.AddCommand(createCmd, showCmd)
	return cmd
}

func candidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidate",
		Short: "Register or list candidates",
	}
	var caller, at, image string
	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Register a candidate during the registration phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			return runCandidateAdd(
				cfg,
				commandLogger(),
				cmd.OutOrStdout(),
				caller,
				at,
				args[0],
				image,
			)
		},
	}
	addCmd.Flags().StringVar(&caller, "caller", "", "administrator identity")
	addCmd.Flags().StringVar(&at, "at", "", "act at this time instead of now")
	addCmd.Flags().StringVar(&image, "image", "", "candidate image reference")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List candidates in registration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			return runCandidateList(cfg, commandLogger(), cmd.OutOrStdout())
		},
	}
	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

func voteCommand() *cobra.Command {
	var caller, at string
	cmd := &cobra.Command{
		Use:   "vote CANDIDATE_ID",
		Short: "Cast the caller's vote during the voting phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			return runVote(cfg, commandLogger(), cmd.OutOrStdout(), caller, at, args[0])
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "voter identity")
	cmd.Flags().StringVar(&at, "at", "", "act at this time instead of now")
	return cmd
}

func tallyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Show the vote count and per-candidate results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			return runTally(cfg, commandLogger(), cmd.OutOrStdout())
		},
	}
	return cmd
}

func receiptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "receipt VOTER",
		Short: "Show the stored vote receipt for a voter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			return runReceipt(cfg, commandLogger(), cmd.OutOrStdout(), args[0])
		},
	}
}
