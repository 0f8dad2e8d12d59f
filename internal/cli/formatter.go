package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/dirsweep/internal/catalog"
	"github.com/idelchi/dirsweep/internal/clean"
	"github.com/idelchi/dirsweep/internal/dirstat"
	"github.com/idelchi/dirsweep/internal/tree"
	"github.com/idelchi/dirsweep/internal/volume"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
)

// LabelReport is one line of a scan.
type LabelReport struct {
	Label     catalog.Label `json:"label"`
	Path      string        `json:"path,omitempty"`
	Size      int64         `json:"size"`
	Protected bool          `json:"protected"`
	Volume    *volume.Usage `json:"volume,omitempty"`
}

// ScanReport is the result of sizing every label.
type ScanReport struct {
	Labels  []LabelReport `json:"labels"`
	Total   int64         `json:"total"`
	Elapsed time.Duration `json:"elapsed,omitempty"`
}

func newScanReport(c *catalog.Catalog, roots []*tree.Node) *ScanReport {
	report := &ScanReport{Labels: make([]LabelReport, 0, len(roots))}

	for _, root := range roots {
		base, _ := c.Base(root.Label)

		report.Labels = append(report.Labels, LabelReport{
			Label:     root.Label,
			Path:      base,
			Size:      root.Size,
			Protected: c.IsProtected(root.Label),
		})
		report.Total += root.Size
	}

	return report
}

// NodeReport is one entry of an expanded directory.
type NodeReport struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Dir         bool   `json:"dir"`
	Size        int64  `json:"size"`
	HasChildren bool   `json:"has_children"`
}

// TreeReport is a directory and its immediate children.
type TreeReport struct {
	Label    catalog.Label `json:"label"`
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Children []NodeReport  `json:"children"`
}

func newTreeReport(node *tree.Node, path string, children []*tree.Node) *TreeReport {
	report := &TreeReport{
		Label:    node.Label,
		Path:     path,
		Size:     node.Size,
		Children: make([]NodeReport, 0, len(children)),
	}

	for _, child := range children {
		report.Children = append(report.Children, NodeReport{
			Name:        child.DisplayName(),
			ID:          child.ID,
			Dir:         child.IsDir,
			Size:        child.Size,
			HasChildren: child.HasChildren(),
		})
	}

	return report
}

// ResultReport is the outcome for one cleaned label.
type ResultReport struct {
	clean.Result

	Error string `json:"error,omitempty"`
}

func newResultReports(results []clean.Result) []ResultReport {
	reports := make([]ResultReport, len(results))

	for i, result := range results {
		reports[i] = ResultReport{Result: result}
		if result.Err != nil {
			reports[i].Error = result.Err.Error()
		}
	}

	return reports
}

// CleanReport holds the clean results and the rescan that followed.
type CleanReport struct {
	Results []ResultReport `json:"results"`
	Rescan  *ScanReport    `json:"rescan,omitempty"`
}

// Failed returns the number of failed labels.
func (r CleanReport) Failed() int {
	count := 0

	for _, result := range r.Results {
		if result.Kind == clean.Failed {
			count++
		}
	}

	return count
}

// PrintJSON outputs v in indented JSON format.
func PrintJSON(v any, writer io.Writer) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

func newTabWriter(writer io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)
}

func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}

	return 100.0 * float64(part) / float64(total)
}

// PrintScanTable outputs the label sizes in human-readable table format.
func PrintScanTable(report *ScanReport, writer io.Writer) error {
	w := newTabWriter(writer)

	withVolumes := false

	for _, label := range report.Labels {
		if label.Volume != nil {
			withVolumes = true

			break
		}
	}

	header := "LABEL\tSIZE\tBYTES\tSHARE\tPATH"
	if withVolumes {
		header += "\tVOLUME FREE"
	}

	fmt.Fprintln(w, header)

	for _, label := range report.Labels {
		name := string(label.Label)
		if label.Protected {
			name += " (protected)"
		}

		line := fmt.Sprintf("%s\t%s\t%s\t%.1f%%\t%s",
			name, dirstat.FormatSize(label.Size), humanize.Comma(label.Size),
			percent(label.Size, report.Total), label.Path)

		if withVolumes {
			if label.Volume != nil {
				line += fmt.Sprintf("\t%s of %s (%.0f%% used)",
					humanize.IBytes(label.Volume.Free), humanize.IBytes(label.Volume.Total), label.Volume.UsedPercent)
			} else {
				line += "\t-"
			}
		}

		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\nTotal:\t%s\t%s\t\t\n", dirstat.FormatSize(report.Total), humanize.Comma(report.Total))

	if report.Elapsed > 0 {
		fmt.Fprintf(w, "Elapsed:\t%v\t\t\t\n", report.Elapsed.Round(time.Millisecond))
	}

	return w.Flush()
}

// PrintTreeTable outputs one expanded directory.
func PrintTreeTable(report *TreeReport, writer io.Writer) error {
	w := newTabWriter(writer)

	fmt.Fprintf(w, "%s\t%s\n\n", report.Path, dirstat.FormatSize(report.Size))

	if len(report.Children) == 0 {
		fmt.Fprintln(w, "(empty)")

		return w.Flush()
	}

	for _, child := range report.Children {
		marker := " "
		if child.HasChildren {
			marker = "+"
		}

		fmt.Fprintf(w, "%s %s\t%s\t%.1f%%\n",
			marker, child.Name, dirstat.FormatSize(child.Size), percent(child.Size, report.Size))
	}

	return w.Flush()
}

// PrintCleanTable outputs clean results, notices, and the rescan if any.
func PrintCleanTable(report CleanReport, writer io.Writer) error {
	w := newTabWriter(writer)

	fmt.Fprintln(w, "LABEL\tRESULT\tFREED\tPATH")

	var notices []string

	for _, result := range report.Results {
		kind := result.Kind.String()
		if result.DryRun && result.Kind == clean.Success {
			kind = "would clean"
		}

		freed := "-"
		if result.Kind == clean.Success {
			freed = fmt.Sprintf("%s (%s files)", dirstat.FormatSize(result.Freed), humanize.Comma(result.Files))
		}

		path := result.Path
		if path == "" {
			path = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", result.Label, kind, freed, path)

		switch result.Kind {
		case clean.Protected:
			notices = append(notices, "notice: "+result.Reason)
		case clean.Failed:
			notices = append(notices, fmt.Sprintf("error: %s: %s", result.Label, result.Reason))
		case clean.Skipped:
			notices = append(notices, fmt.Sprintf("skipped: %s: %s", result.Label, result.Reason))
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if len(notices) > 0 {
		fmt.Fprintf(writer, "\n%s\n", strings.Join(notices, "\n"))
	}

	if report.Rescan != nil {
		fmt.Fprintln(writer, "\nAfter cleaning:")

		return PrintScanTable(report.Rescan, writer)
	}

	return nil
}

// PrintCatalogTable outputs the labels and their paths.
func PrintCatalogTable(c *catalog.Catalog, writer io.Writer) error {
	w := newTabWriter(writer)

	fmt.Fprintln(w, "LABEL\tPROTECTED\tPATHS")

	for _, spec := range c.Specs() {
		protected := ""
		if spec.Protected {
			protected = "yes"
		}

		for i, path := range spec.Paths {
			if i == 0 {
				fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Label, protected, path)
			} else {
				fmt.Fprintf(w, "\t\t%s\n", path)
			}
		}
	}

	return w.Flush()
}
