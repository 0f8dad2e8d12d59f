package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// Options configures every command.
type Options struct {
	// Config is the catalog file to load (empty = search default locations).
	Config string
	// Debug indicates whether debug output is enabled.
	Debug bool
	// Workers is the number of walker goroutines (0 = default).
	Workers int
	// Output represents output format.
	Output string
	// Volumes indicates whether to report filesystem capacity per label.
	Volumes bool
	// Yes skips the confirmation prompt when cleaning.
	Yes bool
	// DryRun reports what would be cleaned without removing anything.
	DryRun bool
}

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputTOML  = "toml"
)

// Execute runs the CLI with the process arguments. Cancelling ctx stops
// scans and cleans between labels.
func (c CLI) Execute(ctx context.Context) error {
	return c.Command().ExecuteContext(ctx)
}

// Command builds the root command.
func (c CLI) Command() *cobra.Command {
	options := &Options{}

	root := &cobra.Command{
		Use:   "dirsweep",
		Short: "Inspect and clean a fixed set of storage locations",
		Long: heredoc.Doc(`
			dirsweep reports the disk usage of a catalog of labelled locations
			(Documents, Applications, Developer, System Data, ...), lets you drill
			into any of them one level at a time, and empties selected locations
			after confirmation.

			The catalog is read from --config, $XDG_CONFIG_HOME/dirsweep/config.toml
			or ~/.config/dirsweep/config.toml, falling back to a built-in table.
			Print the effective catalog with 'dirsweep catalog -o toml'.
		`),
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addGlobalFlags(root.PersistentFlags(), options)

	root.AddCommand(
		scanCommand(options),
		treeCommand(options),
		cleanCommand(options),
		catalogCommand(options),
		browseCommand(options),
	)

	return root
}

func addGlobalFlags(flags *pflag.FlagSet, options *Options) {
	flags.StringVarP(&options.Config, "config", "c", "", "Catalog file (TOML)")
	flags.BoolVar(&options.Debug, "debug", false, "Enable debug output")
	flags.IntVarP(&options.Workers, "workers", "w", 0, "Number of directory walker goroutines (0=default)")
}

func addOutputFlag(flags *pflag.FlagSet, options *Options, allowed ...string) {
	flags.StringVarP(&options.Output, "output", "o", OutputTable, fmt.Sprintf("Output format: one of %v", allowed))
}

func validateOutput(options *Options, allowed ...string) error {
	if !slices.Contains(allowed, options.Output) {
		return fmt.Errorf("invalid output format %q: must be one of %v", options.Output, allowed)
	}

	return nil
}

func validateWorkers(options *Options) error {
	if options.Workers < 0 {
		return fmt.Errorf("workers cannot be negative: %d", options.Workers)
	}

	return nil
}

func scanCommand(options *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report the size of every label",
		Long: heredoc.Doc(`
			Size every label in catalog order. Labels are processed one at a time;
			on a terminal a progress line is shown on stderr.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(options, OutputTable, OutputJSON); err != nil {
				return err
			}

			if err := validateWorkers(options); err != nil {
				return err
			}

			return runScan(cmd, options)
		},
	}

	addOutputFlag(cmd.Flags(), options, OutputTable, OutputJSON)
	cmd.Flags().BoolVar(&options.Volumes, "volumes", false, "Also report the capacity of the filesystem holding each label")

	return cmd
}

func treeCommand(options *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree LABEL [SUBPATH]",
		Short: "List one level below a label or a directory inside it",
		Long: heredoc.Doc(`
			Expand a single node: the label itself, or the directory SUBPATH
			(slash separated, relative to the label's first path). Every entry is
			listed with the total size of everything below it.
		`),
		Example: heredoc.Doc(`
			dirsweep tree Documents
			dirsweep tree "System Data" Caches/com.apple.Safari
		`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(options, OutputTable, OutputJSON); err != nil {
				return err
			}

			if err := validateWorkers(options); err != nil {
				return err
			}

			subpath := ""
			if len(args) == 2 {
				subpath = args[1]
			}

			return runTree(cmd, options, args[0], subpath)
		},
	}

	addOutputFlag(cmd.Flags(), options, OutputTable, OutputJSON)

	return cmd
}

func cleanCommand(options *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean LABEL...",
		Short: "Empty the directories behind the given labels",
		Long: heredoc.Doc(`
			Remove everything inside the first path of each LABEL and recreate it
			empty. The protected label is never cleaned. This cannot be undone.

			You are asked for confirmation on a terminal; otherwise --yes is
			required. A fresh scan of the cleaned labels is printed afterwards.
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(options, OutputTable, OutputJSON); err != nil {
				return err
			}

			if err := validateWorkers(options); err != nil {
				return err
			}

			return runClean(cmd, options, args)
		},
	}

	addOutputFlag(cmd.Flags(), options, OutputTable, OutputJSON)
	cmd.Flags().BoolVarP(&options.Yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVarP(&options.DryRun, "dry-run", "n", false, "Show what would be cleaned without removing anything")

	return cmd
}

func catalogCommand(options *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the effective catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(options, OutputTable, OutputJSON, OutputTOML); err != nil {
				return err
			}

			return runCatalog(cmd, options)
		},
	}

	addOutputFlag(cmd.Flags(), options, OutputTable, OutputJSON, OutputTOML)

	return cmd
}

func browseCommand(options *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse and clean labels interactively",
		Long: heredoc.Doc(`
			Start the terminal browser. Labels are sized one after the other, any
			directory can be expanded on demand, and marked labels can be cleaned
			after confirmation.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateWorkers(options); err != nil {
				return err
			}

			return runBrowse(cmd, options)
		},
	}
}
