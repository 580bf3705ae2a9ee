package cmd

import (
	"strings"

	"dqc/internal/database"
	"dqc/internal/engine"
	"dqc/internal/report"
	"dqc/internal/schema"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	numericTypes bool
	dateTypes    bool
	textTypes    bool

	skipNaN        bool
	skipReferences bool
	skipEncoding   bool
	skipPK         bool

	skipLarge  bool
	skipTables []string
	threshold  int64
	showAll    bool
	top        int
)

func addClassFlags(c *cobra.Command) {
	c.Flags().BoolVar(&numericTypes, "numeric-types", false, "check numeric columns (default: all classes)")
	c.Flags().BoolVar(&dateTypes, "date-types", false, "check date and time columns (default: all classes)")
	c.Flags().BoolVar(&textTypes, "text-types", false, "check text columns (default: all classes)")
}

func addCheckFlags(c *cobra.Command) {
	c.Flags().BoolVar(&skipNaN, "skip-nan-check", false, "skip the NaN check")
	c.Flags().BoolVar(&skipReferences, "skip-references-check", false, "skip the orphan reference check")
	c.Flags().BoolVar(&skipEncoding, "skip-encoding-check", false, "skip the encoding check")
	c.Flags().BoolVar(&skipPK, "skip-pk-check", false, "skip the missing primary key check")
}

func addSizeFlags(c *cobra.Command) {
	c.Flags().Int64Var(&threshold, "threshold", engine.DefaultThreshold, "row count above which a table is large (overrides config)")
	c.Flags().StringArrayVar(&skipTables, "skip-table", []string{}, "table to skip (repeatable)")
}

// selectedClasses turns the class flags into a set; no flag means all.
func selectedClasses() schema.ClassSet {
	var classes []schema.Class
	if numericTypes {
		classes = append(classes, schema.Numeric)
	}
	if dateTypes {
		classes = append(classes, schema.DateTime)
	}
	if textTypes {
		classes = append(classes, schema.Text)
	}
	if len(classes) == 0 {
		return schema.AllClasses
	}
	return schema.ClassSetOf(classes...)
}

func describeClasses(set schema.ClassSet) string {
	var names []string
	for _, c := range []schema.Class{schema.Numeric, schema.DateTime, schema.Text} {
		if set.Has(c) {
			names = append(names, c.String())
		}
	}
	return strings.Join(names, ", ")
}

// selectedChecks applies the skip flags to base.
func selectedChecks(base report.KindSet) report.KindSet {
	checks := base
	if skipNaN {
		checks = checks.Without(report.Nan)
	}
	if skipReferences {
		checks = checks.Without(report.OrphanReference)
	}
	if skipEncoding {
		checks = checks.Without(report.Encoding)
	}
	if skipPK {
		checks = checks.Without(report.MissingPrimaryKey)
	}
	return checks
}

func effectiveThreshold(c *cobra.Command) int64 {
	if flagChanged(c, "threshold") {
		return threshold
	}
	return viper.GetInt64("settings.threshold")
}

// effectiveSkipTables merges --skip-table with settings.skip_tables.
func effectiveSkipTables() []string {
	return append(append([]string{}, viper.GetStringSlice("settings.skip_tables")...), skipTables...)
}

func checkerOptions(c *cobra.Command, conn *database.Connection, checks report.KindSet) engine.Options {
	opts := engine.DefaultOptions()
	opts.Checks = checks
	opts.Classes = selectedClasses()
	opts.SampleSize = viper.GetInt("settings.sample_size")
	opts.ContextColumns = viper.GetInt("settings.context_columns")
	opts.Threshold = effectiveThreshold(c)
	opts.QueryTimeout = viper.GetDuration("settings.query_timeout")
	opts.Encoding = conn.Encoding
	opts.ServerTimeout = conn.ServerTimeout
	return opts
}
