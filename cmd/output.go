package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode"

	"dqc/internal/report"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func textOutput() bool { return viper.GetString("output") == formatText }

// render writes v in the selected output format; text uses textFn.
func render(c *cobra.Command, v any, textFn func(w io.Writer) error) error {
	w := c.OutOrStdout()
	switch viper.GetString("output") {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "failed to write json")
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "failed to write yaml")
		}
		return errors.Wrap(enc.Close(), "failed to write yaml")
	default:
		return textFn(w)
	}
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// formatValue renders a sampled value on one line.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		if strings.IndexFunc(x, func(r rune) bool { return !unicode.IsPrint(r) }) >= 0 {
			return strconv.QuoteToASCII(x)
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatFields(fields []report.FieldView) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Column + "=" + formatValue(f.Value)
	}
	return strings.Join(parts, " ")
}

func writeTableView(w io.Writer, v report.TableView) error {
	if v.Skipped {
		_, err := fmt.Fprintf(w, "Table %s: skipped (%s)\n", v.Table, v.SkipReason)
		return err
	}

	fmt.Fprintf(w, "Table %s (%d rows)\n", v.Table, v.RowCount)
	if v.Clean {
		fmt.Fprintln(w, "  no issues found")
	}

	for _, g := range v.Groups {
		fmt.Fprintf(w, "\n  %s\n", g.Title)
		tw := newTabWriter(w)
		fmt.Fprintln(tw, "    SUBJECT\tCOUNT\tPERCENT\tDETAIL")
		for _, f := range g.Findings {
			fmt.Fprintf(tw, "    %s\t%d\t%.2f%%\t%s\n", f.Subject, f.Count, f.Percentage, f.Detail)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, f := range g.Findings {
			if len(f.Sample) == 0 && f.SampleError == "" {
				continue
			}
			fmt.Fprintf(w, "    sample of %s:\n", f.Subject)
			for _, s := range f.Sample {
				line := formatFields(s.Values)
				if len(s.Key) > 0 {
					line = "[" + formatFields(s.Key) + "] " + line
				}
				fmt.Fprintf(w, "      %s\n", line)
			}
			if f.SampleError != "" {
				fmt.Fprintf(w, "      sample unavailable: %s\n", f.SampleError)
			}
		}
	}

	if len(v.Failures) > 0 {
		fmt.Fprintln(w, "\n  Failed checks")
		tw := newTabWriter(w)
		for _, f := range v.Failures {
			fmt.Fprintf(tw, "    %s\t%s\t%s\n", f.Kind, f.Subject, f.Error)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(v.Excluded) > 0 {
		fmt.Fprintln(w, "\n  Not checked")
		tw := newTabWriter(w)
		for _, e := range v.Excluded {
			fmt.Fprintf(tw, "    %s\t%s\t%s\n", e.Column, e.Type, e.Reason)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func writeDatabaseView(w io.Writer, v report.DatabaseView) error {
	for _, t := range v.Tables {
		if err := writeTableView(w, t); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "Summary")
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "  tables scanned\t%d\n", v.Summary.TablesScanned)
	fmt.Fprintf(tw, "  tables skipped\t%d\n", v.Summary.TablesSkipped)
	for _, k := range v.Summary.FindingsByKind {
		fmt.Fprintf(tw, "  %s\t%d\n", k.Kind, k.Count)
	}
	fmt.Fprintf(tw, "  total findings\t%d\n", v.Summary.TotalFindings)
	fmt.Fprintf(tw, "  failed checks\t%d\n", v.Summary.FailedChecks)
	if err := tw.Flush(); err != nil {
		return err
	}
	if v.Partial {
		fmt.Fprintln(w, "\nScan interrupted: the report is partial.")
	}
	return nil
}
