package cmd

import (
	"fmt"
	"io"
	"strings"

	"dqc/internal/schema"

	"github.com/spf13/cobra"
)

type columnDescView struct {
	Name     string  `json:"name" yaml:"name"`
	Type     string  `json:"type" yaml:"type"`
	Class    string  `json:"class" yaml:"class"`
	Nullable bool    `json:"nullable" yaml:"nullable"`
	Default  *string `json:"default,omitempty" yaml:"default,omitempty"`
	Meaning  string  `json:"meaning,omitempty" yaml:"meaning,omitempty"`
}

type foreignKeyView struct {
	Name       string   `json:"name" yaml:"name"`
	Columns    []string `json:"columns" yaml:"columns"`
	References string   `json:"references" yaml:"references"`
	RefColumns []string `json:"ref_columns" yaml:"ref_columns"`
}

type indexView struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Unique  bool     `json:"unique" yaml:"unique"`
}

type tableDescView struct {
	Table         string           `json:"table" yaml:"table"`
	Schema        string           `json:"schema" yaml:"schema"`
	EstimatedRows int64            `json:"estimated_rows" yaml:"estimated_rows"`
	Columns       []columnDescView `json:"columns" yaml:"columns"`
	PrimaryKey    []string         `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	ForeignKeys   []foreignKeyView `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
	Indexes       []indexView      `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

func buildTableDescView(t *schema.Table) tableDescView {
	v := tableDescView{Table: t.Name, Schema: t.Schema, EstimatedRows: t.RowEstimate}
	for _, c := range t.Columns {
		v.Columns = append(v.Columns, columnDescView{
			Name:     c.Name,
			Type:     c.DataType,
			Class:    c.Class.String(),
			Nullable: c.IsNullable,
			Default:  c.Default,
			Meaning:  c.Meaning,
		})
	}
	if t.HasPrimaryKey() {
		v.PrimaryKey = t.PrimaryKey.Columns
	}
	for _, fk := range t.ForeignKeys {
		ref := fk.RefTable
		if fk.RefSchema != "" && fk.RefSchema != t.Schema {
			ref = fk.RefSchema + "." + fk.RefTable
		}
		v.ForeignKeys = append(v.ForeignKeys, foreignKeyView{
			Name:       fk.Name,
			Columns:    fk.LocalColumns(),
			References: ref,
			RefColumns: fk.ReferencedColumns(),
		})
	}
	for _, idx := range t.Indexes {
		if idx.Primary {
			continue
		}
		v.Indexes = append(v.Indexes, indexView{Name: idx.Name, Columns: idx.Columns, Unique: idx.Unique})
	}
	return v
}

func writeTableDescView(w io.Writer, v tableDescView) error {
	fmt.Fprintf(w, "Table %s.%s (~%d rows)\n\n", v.Schema, v.Table, v.EstimatedRows)

	tw := newTabWriter(w)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tCLASS\tNULLABLE\tDEFAULT\tMEANING")
	for _, c := range v.Columns {
		nullable := "NO"
		if c.Nullable {
			nullable = "YES"
		}
		def := ""
		if c.Default != nil {
			def = *c.Default
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Name, c.Type, c.Class, nullable, def, c.Meaning)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(v.PrimaryKey) > 0 {
		fmt.Fprintf(w, "\nPrimary key: %s\n", strings.Join(v.PrimaryKey, ", "))
	} else {
		fmt.Fprintln(w, "\nPrimary key: none")
	}
	if len(v.ForeignKeys) > 0 {
		fmt.Fprintln(w, "\nForeign keys:")
		for _, fk := range v.ForeignKeys {
			fmt.Fprintf(w, "  %s (%s) -> %s (%s)\n", fk.Name, strings.Join(fk.Columns, ", "), fk.References, strings.Join(fk.RefColumns, ", "))
		}
	}
	if len(v.Indexes) > 0 {
		fmt.Fprintln(w, "\nIndexes:")
		for _, idx := range v.Indexes {
			unique := ""
			if idx.Unique {
				unique = " unique"
			}
			fmt.Fprintf(w, "  %s (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
	}
	return nil
}

var describeTableCmd = &cobra.Command{
	Use:   "describe-table DSN TABLE",
	Short: "Show a table's columns, keys and indexes as the checks see them",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect(cmd, args[0])
		if err != nil {
			return err
		}
		defer conn.Close()

		in := schema.NewIntrospector(conn.Conn, conn.Dialect, conn.Schema, log)
		t, err := in.DescribeTable(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		view := buildTableDescView(t)
		return render(cmd, view, func(w io.Writer) error {
			return writeTableDescView(w, view)
		})
	},
}

func init() {
	RootCmd.AddCommand(describeTableCmd)
}
