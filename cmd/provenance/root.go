package main

import (
	"github.com/spf13/cobra"

	"provenance/internal/output"
	"provenance/pkg/provenance"
)

// extraOptions is appended to every Builder the commands create.
var extraOptions []provenance.Option

// generateFlags holds the flags shared by the root and generate commands.
type generateFlags struct {
	dir      string
	output   string
	pkg      string
	deny     []string
	evidence string
	backend  string
}

// registerResolve adds the flags that affect which facts are resolved.
func (f *generateFlags) registerResolve(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.dir, "dir", "C", ".", "directory to generate facts for")
	fs.StringVarP(&f.pkg, "package", "p", "", "package clause of the artifact (default $GOPACKAGE)")
	fs.StringSliceVar(&f.deny, "deny", nil, "fact keys or globs to leave out")
	fs.StringVar(&f.backend, "backend", "", "git backend: auto, cli or lib")
}

// register adds every generate flag, including the output paths.
func (f *generateFlags) register(cmd *cobra.Command) {
	f.registerResolve(cmd)
	fs := cmd.Flags()
	fs.StringVarP(&f.output, "output", "o", "", "artifact path (default "+provenance.DefaultOutput+")")
	fs.StringVar(&f.evidence, "evidence", "", "also write a Markdown provenance note to this path")
}

func (f *generateFlags) options(log output.LoggerInterface) []provenance.Option {
	opts := []provenance.Option{
		provenance.WithDir(f.dir),
		provenance.WithOutput(f.output),
		provenance.WithPackage(f.pkg),
		provenance.WithDeny(f.deny...),
		provenance.WithEvidence(f.evidence),
		provenance.WithBackend(f.backend),
		provenance.WithLogger(log),
	}
	return append(opts, extraOptions...)
}

func newRootCmd(log *output.Logger) *cobra.Command {
	var (
		flags   generateFlags
		verbose bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "provenance",
		Short: "Generate build provenance facts for a Go package",
		Long: `provenance resolves facts about the current build (module, git state,
toolchain, CI refs and build time) and writes them as typed constants into a
generated Go file.

Run without a subcommand it behaves like "provenance generate".

Examples:
  # From a go:generate directive
  //go:generate go run provenance/cmd/provenance -p buildinfo

  # Leave out author details
  provenance generate --deny 'COMMIT_AUTHOR,COMMIT_EMAIL'

  # Inspect the facts without writing anything
  provenance show`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetVerbose(verbose)
			if noColor {
				log.SetNoColor(true)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags.options(log))
		},
	}
	flags.register(cmd)
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print diagnostics")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newGenerateCmd(log),
		newShowCmd(log),
		newVersionCmd(),
	)
	return cmd
}
