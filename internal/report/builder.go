package report

// Views are the presentation-ready shape of reports. They carry json and
// yaml tags and nothing else depends on them.

type FieldView struct {
	Column string `json:"column" yaml:"column"`
	Value  any    `json:"value" yaml:"value"`
}

type SampleView struct {
	Key    []FieldView `json:"key,omitempty" yaml:"key,omitempty"`
	Values []FieldView `json:"values" yaml:"values"`
}

type FindingView struct {
	Subject     string       `json:"subject" yaml:"subject"`
	Columns     []string     `json:"columns,omitempty" yaml:"columns,omitempty"`
	Constraint  string       `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Detail      string       `json:"detail,omitempty" yaml:"detail,omitempty"`
	Count       int64        `json:"count" yaml:"count"`
	Percentage  float64      `json:"percentage" yaml:"percentage"`
	Sample      []SampleView `json:"sample,omitempty" yaml:"sample,omitempty"`
	SampleError string       `json:"sample_error,omitempty" yaml:"sample_error,omitempty"`
}

type FindingGroup struct {
	Kind     string        `json:"kind" yaml:"kind"`
	Title    string        `json:"title" yaml:"title"`
	Findings []FindingView `json:"findings" yaml:"findings"`
}

type FailureView struct {
	Kind    string `json:"kind" yaml:"kind"`
	Subject string `json:"subject" yaml:"subject"`
	Error   string `json:"error" yaml:"error"`
}

type ExclusionView struct {
	Column string `json:"column" yaml:"column"`
	Type   string `json:"type" yaml:"type"`
	Reason string `json:"reason" yaml:"reason"`
}

type TableView struct {
	Table      string          `json:"table" yaml:"table"`
	RowCount   int64           `json:"row_count" yaml:"row_count"`
	Skipped    bool            `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	SkipReason string          `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	Clean      bool            `json:"clean" yaml:"clean"`
	Groups     []FindingGroup  `json:"groups,omitempty" yaml:"groups,omitempty"`
	Failures   []FailureView   `json:"failures,omitempty" yaml:"failures,omitempty"`
	Excluded   []ExclusionView `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

type KindCount struct {
	Kind  string `json:"kind" yaml:"kind"`
	Count int    `json:"count" yaml:"count"`
}

type SummaryView struct {
	TablesScanned  int         `json:"tables_scanned" yaml:"tables_scanned"`
	TablesSkipped  int         `json:"tables_skipped" yaml:"tables_skipped"`
	TotalFindings  int         `json:"total_findings" yaml:"total_findings"`
	FindingsByKind []KindCount `json:"findings_by_kind" yaml:"findings_by_kind"`
	FailedChecks   int         `json:"failed_checks" yaml:"failed_checks"`
}

type DatabaseView struct {
	Tables  []TableView `json:"tables" yaml:"tables"`
	Summary SummaryView `json:"summary" yaml:"summary"`
	Partial bool        `json:"partial,omitempty" yaml:"partial,omitempty"`
}

// BuildTable groups a table's findings by kind in canonical order and
// separates failed checks from genuine findings.
func BuildTable(r *TableReport) TableView {
	v := TableView{
		Table:      r.Table,
		RowCount:   r.RowCount,
		Skipped:    r.Skipped,
		SkipReason: string(r.SkipReason),
		Clean:      r.Clean(),
	}

	if r.Error != "" {
		v.Failures = append(v.Failures, FailureView{Kind: "introspection", Subject: r.Table, Error: r.Error})
	}

	byKind := make(map[Kind][]FindingView)
	for _, f := range r.Findings {
		if f.Failed() {
			v.Failures = append(v.Failures, FailureView{Kind: f.Kind.String(), Subject: f.Subject(), Error: f.Error})
			continue
		}
		byKind[f.Kind] = append(byKind[f.Kind], findingView(f))
	}
	for _, k := range Kinds {
		if fs := byKind[k]; len(fs) > 0 {
			v.Groups = append(v.Groups, FindingGroup{Kind: k.String(), Title: k.Title(), Findings: fs})
		}
	}

	for _, e := range r.Excluded {
		v.Excluded = append(v.Excluded, ExclusionView(e))
	}
	return v
}

// BuildDatabase builds every table view and the summary totals.
func BuildDatabase(r *DatabaseReport) DatabaseView {
	v := DatabaseView{
		Tables:  make([]TableView, 0, len(r.Tables)),
		Partial: r.Partial,
		Summary: SummaryView{
			TablesScanned: r.Summary.TablesScanned,
			TablesSkipped: r.Summary.TablesSkipped,
			FailedChecks:  r.Summary.FailedChecks,
		},
	}
	for _, t := range r.Tables {
		v.Tables = append(v.Tables, BuildTable(t))
	}
	for _, k := range Kinds {
		n := r.Summary.FindingsByKind[k]
		v.Summary.FindingsByKind = append(v.Summary.FindingsByKind, KindCount{Kind: k.String(), Count: n})
		v.Summary.TotalFindings += n
	}
	return v
}

func findingView(f *Finding) FindingView {
	v := FindingView{
		Subject:     f.Subject(),
		Columns:     f.Columns,
		Constraint:  f.Constraint,
		Detail:      f.Detail,
		Count:       f.Count,
		Percentage:  f.Percentage,
		SampleError: f.SampleError,
	}
	for _, row := range f.Sample {
		v.Sample = append(v.Sample, SampleView{Key: fieldViews(row.Key), Values: fieldViews(row.Values)})
	}
	return v
}

func fieldViews(fields []Field) []FieldView {
	out := make([]FieldView, len(fields))
	for i, f := range fields {
		out[i] = FieldView(f)
	}
	return out
}
