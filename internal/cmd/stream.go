package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getpup/pupstore/es/store"
)

// NewStreamCommand constructs the `stream` command group and subcommands.
func NewStreamCommand() *cobra.Command {
	streamCmd := &cobra.Command{Use: "stream", Short: "Inspect stored event streams"}
	streamCmd.PersistentFlags().String("model", "", "Storage model: stream or commit (default from config)")

	streamCmd.AddCommand(
		newStreamShowCommand(),
		newStreamVersionCommand(),
	)

	return streamCmd
}

// store opens an event store over the session database, with the
// configured table names and cache capacity.
func (s *session) store() (*store.Store, error) {
	cfg := store.NewTableConfig(
		store.WithStreamTable(s.cfg.Name.Stream),
		store.WithCommitTable(s.cfg.Name.Commit),
	)
	strategy, err := store.NewStrategy(s.model, s.provider.Dialect(), cfg)
	if err != nil {
		return nil, err
	}
	return store.New(s.db, strategy, store.WithLogger(s.logger), store.WithCache(s.cfg.NewCache())), nil
}

type eventLine struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Version       int64          `json:"version"`
	CommitVersion int64          `json:"commit_version"`
	RecordedAt    string         `json:"recorded_at"`
	Payload       any            `json:"payload"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// newStreamShowCommand constructs the `stream show` subcommand.
func newStreamShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <stream-id>",
		Short: "Print the events of a stream as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			st, err := s.store()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			stream, err := st.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if stream == nil {
				fmt.Fprintf(out, "!! Stream %s does not exist ...\n", args[0])
				return fmt.Errorf("stream %s does not exist", args[0])
			}

			enc := json.NewEncoder(out)
			for _, e := range stream.Events {
				line := eventLine{
					ID:            e.ID.String(),
					Type:          e.Type,
					Version:       e.Version,
					CommitVersion: e.CommitVersion,
					RecordedAt:    e.RecordedAt.Format("2006-01-02T15:04:05.000000Z07:00"),
					Payload:       e.Payload,
					Metadata:      e.Metadata,
				}
				if err := enc.Encode(line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// newStreamVersionCommand constructs the `stream version` subcommand.
func newStreamVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version <stream-id>",
		Short: "Print the current version of a stream (0 when it does not exist)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			st, err := s.store()
			if err != nil {
				return err
			}

			version, err := st.CurrentVersion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
