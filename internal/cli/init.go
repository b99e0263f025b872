package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syllog/syllog/internal/fact"
	"github.com/syllog/syllog/internal/schema"
	"github.com/syllog/syllog/internal/store"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and provision tables from the schema",
		Long: `Open (or create) the SQLite database and provision one table per entity
type and per storable relation. Provisioning is idempotent.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, s, err := openProvisioned(cmd, opts)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return &ExitError{Code: ExitCommandError, Message: "init failed", Err: err}
	}
	defer st.Close()

	storable := 0
	for _, rel := range s.Relations() {
		if !rel.Inferred {
			storable++
		}
	}
	return formatter.Success(fmt.Sprintf("Provisioned %s: %d entity table(s), %d fact table(s)",
		opts.DBPath, len(s.Entities()), storable))
}

// openProvisioned loads the schema, opens the database, and provisions its
// tables. Shared by every command that touches the store.
func openProvisioned(cmd *cobra.Command, opts *RootOptions) (*store.Store, *fact.Schema, error) {
	s, err := schema.Load(opts.SchemaDir)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Provision(cmd.Context(), s); err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, s, nil
}
