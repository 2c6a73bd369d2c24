package main

import (
	"github.com/spf13/cobra"

	"provenance/internal/output"
	"provenance/pkg/provenance"
)

func newGenerateCmd(log *output.Logger) *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the provenance artifact",
		Long: `Resolve every fact and write the artifact, overwriting any previous one.

Settings in .provenance/settings.yaml at the module root supply defaults for
the output path, package name, deny list, evidence note and backend. Flags
take precedence; deny rules from both are combined.

Facts that cannot be determined are written with their zero value. Only I/O
failures on the artifact or the evidence note make the command fail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags.options(log))
		},
	}
	flags.register(cmd)
	return cmd
}

func runGenerate(cmd *cobra.Command, opts []provenance.Option) error {
	_, err := provenance.New(opts...).Build(cmd.Context())
	return err
}
