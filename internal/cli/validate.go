package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syllog/syllog/internal/schema"
)

// ValidationResult holds schema validation results.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Entities  []string `json:"entities,omitempty"`
	Relations []string `json:"relations,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the CUE schema directory",
		Long: `Compile the schema directory and report errors with source positions.

Checks entity and relation declarations without touching the database.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := schema.Load(opts.SchemaDir)
	if err != nil {
		formatter.Error(ErrCodeSchema, err.Error(), nil)
		return &ExitError{Code: ExitFailure, Message: "schema validation failed", Err: err}
	}

	result := ValidationResult{Valid: true}
	for _, et := range s.Entities() {
		result.Entities = append(result.Entities, et.Name)
	}
	for _, rel := range s.Relations() {
		result.Relations = append(result.Relations, rel.Name)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	formatter.VerboseLog("schema directory: %s", opts.SchemaDir)
	return formatter.Success(formatValidationText(result))
}

func formatValidationText(r ValidationResult) string {
	return fmt.Sprintf("Schema valid: %d entity type(s), %d relation(s)",
		len(r.Entities), len(r.Relations))
}
