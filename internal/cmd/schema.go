package cmd

import (
	"bufio"
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getpup/pupstore/es"
	"github.com/getpup/pupstore/es/connection"
	"github.com/getpup/pupstore/es/schema"
	"github.com/getpup/pupstore/internal/config"
)

// NewSchemaCommand constructs the `schema` command group and subcommands.
func NewSchemaCommand() *cobra.Command {
	schemaCmd := &cobra.Command{Use: "schema", Short: "Event store table operations"}
	schemaCmd.PersistentFlags().String("model", "", "Storage model: stream or commit (default from config)")

	schemaCmd.AddCommand(
		newSchemaCreateCommand(),
		newSchemaDropCommand(),
		newSchemaSQLCommand(),
	)

	return schemaCmd
}

// session is an opened database with the resolved configuration.
type session struct {
	cfg      config.Config
	provider *connection.Provider
	db       *sql.DB
	logger   es.Logger
	model    schema.Model
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, model, err := resolveModel(cmd)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd, cmd.ErrOrStderr())
	provider, err := connection.NewProvider(cfg.Persistence, connection.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	db, err := provider.Get(cmd.Context())
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, provider: provider, db: db, logger: logger, model: model}, nil
}

func (s *session) close() {
	_ = s.provider.Close()
}

func (s *session) manager(prefix string, cmd *cobra.Command) *schema.Manager {
	out := cmd.OutOrStdout()
	return schema.NewManager(s.provider.Dialect(),
		schema.WithLogger(s.logger),
		schema.WithStatementHook(func(stmt string) {
			fmt.Fprintf(out, "%s %s\n", prefix, stmt)
		}))
}

func resolveModel(cmd *cobra.Command) (config.Config, schema.Model, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, "", err
	}
	flagModel, _ := cmd.Flags().GetString("model")
	if flagModel == "" {
		flagModel = string(cfg.Model)
	}
	model, err := schema.ParseModel(flagModel)
	if err != nil {
		return config.Config{}, "", err
	}
	return cfg, model, nil
}

// newSchemaCreateCommand constructs the `schema create` subcommand.
func newSchemaCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the event store tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			desired := schema.ForModel(s.model, s.cfg.Name.Stream, s.cfg.Name.Commit)
			manager := s.manager("++", cmd)

			for _, t := range desired.Tables() {
				exists, err := manager.HasTable(ctx, s.db, t.Name)
				if err != nil {
					return err
				}
				if exists {
					fmt.Fprintf(out, "!! Table %s exists ...\n", t.Name)
					return fmt.Errorf("table %s already exists", t.Name)
				}
			}

			for _, t := range desired.Tables() {
				fmt.Fprintf(out, "++ Create table %s ...\n", t.Name)
			}
			if _, err := manager.Apply(ctx, s.db, desired); err != nil {
				return err
			}

			fmt.Fprintln(out, "Done.")
			return nil
		},
	}
}

// newSchemaDropCommand constructs the `schema drop` subcommand.
func newSchemaDropCommand() *cobra.Command {
	dropCmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the event store tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			desired := schema.DropModel(s.model, s.cfg.Name.Stream, s.cfg.Name.Commit)
			manager := s.manager("--", cmd)

			for _, name := range desired.Drops() {
				exists, err := manager.HasTable(ctx, s.db, name)
				if err != nil {
					return err
				}
				if !exists {
					fmt.Fprintf(out, "!! Table %s does not exist ...\n", name)
					return fmt.Errorf("table %s does not exist", name)
				}
			}

			yes, _ := cmd.Flags().GetBool("yes")
			if !yes && !confirm(cmd, fmt.Sprintf("Drop table(s) %s?", strings.Join(desired.Drops(), ", "))) {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}

			if _, err := manager.Apply(ctx, s.db, desired); err != nil {
				return err
			}

			fmt.Fprintln(out, "Done.")
			return nil
		},
	}
	dropCmd.Flags().BoolP("yes", "y", false, "Drop without asking for confirmation")
	return dropCmd
}

// newSchemaSQLCommand constructs the `schema sql` subcommand.
func newSchemaSQLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sql",
		Short: "Print the DDL of the event store tables without executing it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, model, err := resolveModel(cmd)
			if err != nil {
				return err
			}
			// The provider registers mapping types without connecting
			provider, err := connection.NewProvider(cfg.Persistence)
			if err != nil {
				return err
			}
			d := provider.Dialect()

			out := cmd.OutOrStdout()
			for _, stmt := range schema.Statements(d, schema.ForModel(model, cfg.Name.Stream, cfg.Name.Commit)) {
				fmt.Fprintf(out, "%s;\n", stmt)
			}
			return nil
		},
	}
}

// confirm asks a yes/no question on the command's input. Anything but
// y or yes is a no.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
