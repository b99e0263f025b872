package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRetractCommand creates the retract command.
func NewRetractCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retract <fixture.yaml>",
		Short: "Delete the facts listed in a YAML fixture",
		Long: `Delete the facts listed in a fixture's facts section. Entities in the
fixture are ignored. Retracting a fact that does not exist is a no-op.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetract(rootOpts, args[0], cmd)
		},
	}
}

func runRetract(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	fx, err := ReadFixture(path)
	if err != nil {
		formatter.Error(ErrCodeFixture, err.Error(), nil)
		return &ExitError{Code: ExitCommandError, Message: "retract failed", Err: err}
	}

	st, s, err := openProvisioned(cmd, opts)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return &ExitError{Code: ExitCommandError, Message: "retract failed", Err: err}
	}
	defer st.Close()

	facts, err := FixtureFacts(s, fx)
	if err != nil {
		formatter.Error(ErrCodeFixture, err.Error(), nil)
		return &ExitError{Code: ExitFailure, Message: "retract failed", Err: err}
	}

	if err := st.DeleteFacts(cmd.Context(), facts); err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return &ExitError{Code: ExitFailure, Message: "retract failed", Err: err}
	}

	return formatter.Success(fmt.Sprintf("Retracted %d fact(s) from %s", len(facts), path))
}
