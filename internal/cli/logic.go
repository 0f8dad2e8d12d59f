package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/idelchi/dirsweep/internal/catalog"
	"github.com/idelchi/dirsweep/internal/clean"
	"github.com/idelchi/dirsweep/internal/debug"
	"github.com/idelchi/dirsweep/internal/dirstat"
	"github.com/idelchi/dirsweep/internal/session"
	"github.com/idelchi/dirsweep/internal/tree"
	"github.com/idelchi/dirsweep/internal/tui"
)

// ErrNotConfirmed is returned when cleaning was declined or could not be confirmed.
var ErrNotConfirmed = errors.New("clean not confirmed")

// isTerminal reports whether w or r is attached to a terminal.
func isTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

func newLogger(cmd *cobra.Command, options *Options) debug.Logger {
	return debug.New(options.Debug).To(cmd.ErrOrStderr())
}

// openSession loads the catalog, optionally restricted to labels.
func openSession(cmd *cobra.Command, options *Options, cleanOpts clean.Options, labels ...catalog.Label) (*session.Session, error) {
	log := newLogger(cmd, options)

	cat, err := catalog.Open(options.Config)
	if err != nil {
		return nil, err
	}

	log.Printf("catalog labels: %v (protected: %q)", cat.Labels(), cat.Protected())

	if len(labels) > 0 {
		if cat, err = cat.Subset(labels...); err != nil {
			return nil, err
		}
	}

	return session.New(cat, session.Options{
		Walk:  dirstat.Options{Workers: options.Workers},
		Clean: cleanOpts,
		Log:   log,
	}), nil
}

// progressYield returns a per-label scan callback that keeps a status line on
// stderr, or nil when progress should not be shown.
func progressYield(cmd *cobra.Command, options *Options) (func(int, int, *tree.Node), func()) {
	enableProgress := options.Output != OutputJSON &&
		!options.Debug &&
		isTerminal(cmd.ErrOrStderr())

	if !enableProgress {
		return nil, func() {}
	}

	stderr := cmd.ErrOrStderr()

	// Hide cursor for in-place updates; restore on exit.
	fmt.Fprint(stderr, "\033[?25l")

	var total int64

	yield := func(done, count int, root *tree.Node) {
		total += root.Size
		msg := fmt.Sprintf("Scanning… %d/%d labels, %s so far",
			done, count, humanize.IBytes(uint64(total))) //nolint:gosec // Sizes are never negative
		fmt.Fprintf(stderr, "\r\033[2K%s\r", msg)
	}

	// Clear the status line
	finish := func() {
		fmt.Fprint(stderr, "\r\033[2K\r")
		fmt.Fprint(stderr, "\033[?25h")
	}

	return yield, finish
}

func scanReport(ctx context.Context, s *session.Session, cmd *cobra.Command, options *Options) (*ScanReport, error) {
	yield, finish := progressYield(cmd, options)

	start := time.Now()
	roots, err := s.Scan(ctx, yield)

	finish()

	if err != nil {
		return nil, err
	}

	report := newScanReport(s.Catalog(), roots)
	report.Elapsed = time.Since(start)

	if options.Volumes {
		log := newLogger(cmd, options)

		for i := range report.Labels {
			usage, err := s.Volume(report.Labels[i].Label)
			if err != nil {
				log.Printf("volume of %q: %v", report.Labels[i].Label, err)

				continue
			}

			report.Labels[i].Volume = &usage
		}
	}

	return report, nil
}

func runScan(cmd *cobra.Command, options *Options) error {
	s, err := openSession(cmd, options, clean.Options{})
	if err != nil {
		return err
	}

	report, err := scanReport(cmd.Context(), s, cmd, options)
	if err != nil {
		return err
	}

	if options.Output == OutputJSON {
		return PrintJSON(report, cmd.OutOrStdout())
	}

	return PrintScanTable(report, cmd.OutOrStdout())
}

// splitSubpath turns a slash separated relative path into entry names.
func splitSubpath(subpath string) ([]string, error) {
	subpath = strings.Trim(strings.ReplaceAll(subpath, `\`, "/"), "/")
	if subpath == "" {
		return nil, nil
	}

	cleaned := path.Clean(subpath)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return nil, fmt.Errorf("subpath %q leaves the label", subpath)
	}

	if cleaned == "." {
		return nil, nil
	}

	return strings.Split(cleaned, "/"), nil
}

func runTree(cmd *cobra.Command, options *Options, label, subpath string) error {
	names, err := splitSubpath(subpath)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, options, clean.Options{}, catalog.Label(label))
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if _, err := s.Scan(ctx, nil); err != nil {
		return err
	}

	node, err := s.Descend(ctx, catalog.Label(label), names...)
	if err != nil {
		return err
	}

	if !node.IsDir {
		return fmt.Errorf("%s is not a directory", path.Join(append([]string{label}, names...)...))
	}

	children, err := s.Expand(ctx, node.ID)
	if err != nil {
		return err
	}

	location, err := s.Resolve(node.ID)
	if err != nil {
		return err
	}

	report := newTreeReport(node, location, children)

	if options.Output == OutputJSON {
		return PrintJSON(report, cmd.OutOrStdout())
	}

	return PrintTreeTable(report, cmd.OutOrStdout())
}

func runClean(cmd *cobra.Command, options *Options, args []string) error {
	labels := make([]catalog.Label, len(args))
	for i, arg := range args {
		labels[i] = catalog.Label(arg)
	}

	s, err := openSession(cmd, options, clean.Options{DryRun: options.DryRun, Measure: true}, labels...)
	if err != nil {
		return err
	}

	if !options.Yes && !options.DryRun {
		if !isTerminal(cmd.InOrStdin()) {
			return fmt.Errorf("%w: not a terminal, pass --yes to clean without a prompt", ErrNotConfirmed)
		}

		ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), cleanQuestion(s.Catalog()))
		if err != nil {
			return err
		}

		if !ok {
			return ErrNotConfirmed
		}
	}

	return cleanAndReport(cmd, options, s, labels)
}

func cleanAndReport(cmd *cobra.Command, options *Options, s *session.Session, labels []catalog.Label) error {
	ctx := cmd.Context()

	var report CleanReport

	if options.DryRun {
		report.Results = newResultReports(s.Clean(ctx, labels))
	} else {
		yield, finish := progressYield(cmd, options)
		results, roots, err := s.CleanAndRescan(ctx, labels, yield)

		finish()

		if err != nil {
			return err
		}

		report.Results = newResultReports(results)
		report.Rescan = newScanReport(s.Catalog(), roots)
	}

	out := cmd.OutOrStdout()

	var err error
	if options.Output == OutputJSON {
		err = PrintJSON(report, out)
	} else {
		err = PrintCleanTable(report, out)
	}

	if err != nil {
		return err
	}

	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d label(s) could not be cleaned", failed)
	}

	return nil
}

// cleanQuestion lists what is about to be removed.
func cleanQuestion(c *catalog.Catalog) string {
	var b strings.Builder

	b.WriteString("The contents of these directories will be permanently removed:\n")

	for _, spec := range c.Specs() {
		base, _ := spec.Base()
		if spec.Protected {
			fmt.Fprintf(&b, "  %s: %s (protected, will be kept)\n", spec.Label, base)

			continue
		}

		fmt.Fprintf(&b, "  %s: %s\n", spec.Label, base)
	}

	b.WriteString("Are you sure you want to clean the selected items?")

	return b.String()
}

func runCatalog(cmd *cobra.Command, options *Options) error {
	cat, err := catalog.Open(options.Config)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch options.Output {
	case OutputJSON:
		return PrintJSON(cat.Specs(), out)
	case OutputTOML:
		return catalog.Encode(out, cat)
	default:
		return PrintCatalogTable(cat, out)
	}
}

func runBrowse(cmd *cobra.Command, options *Options) error {
	if !isTerminal(cmd.OutOrStdout()) {
		return errors.New("browse needs a terminal")
	}

	// Debug output would corrupt the full-screen view.
	if options.Debug {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: --debug is ignored while browsing")

		options.Debug = false
	}

	s, err := openSession(cmd, options, clean.Options{Measure: true})
	if err != nil {
		return err
	}

	return tui.Run(cmd.Context(), s)
}
