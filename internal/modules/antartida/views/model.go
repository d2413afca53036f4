package views

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"antartida-viewer/internal/modules/antartida/chart"
	"antartida-viewer/internal/modules/antartida/types"
)

// PageData is the view model for the whole page.
type PageData struct {
	Form FormView
	// FieldErrors holds inline messages keyed by form field name.
	FieldErrors map[string]string
	State       string
	Busy        bool
	// ErrorMessage is the aggregate request failure, if any.
	ErrorMessage string
	Result       *ResultView
	// Partial is set for the polled state fragment, which also refreshes
	// the submit button out of band.
	Partial bool
}

// FormView carries the values the form is rendered with.
type FormView struct {
	Start        string
	End          string
	Station      string
	Location     string
	Aggregation  string
	Temperature  bool
	Pressure     bool
	Speed        bool
	Stations     []StationOption
	Aggregations []AggregationOption
}

type StationOption struct {
	ID       string
	Name     string
	Selected bool
}

type AggregationOption struct {
	Level    string
	Label    string
	Selected bool
}

// NewFormView fills the station and aggregation options and marks the
// selected ones.
func NewFormView(f FormView) FormView {
	f.Stations = make([]StationOption, 0, len(types.Stations))
	for _, s := range types.Stations {
		f.Stations = append(f.Stations, StationOption{
			ID:       string(s.ID),
			Name:     s.Name,
			Selected: string(s.ID) == f.Station,
		})
	}
	f.Aggregations = make([]AggregationOption, 0, len(types.Aggregations))
	for _, a := range types.Aggregations {
		f.Aggregations = append(f.Aggregations, AggregationOption{
			Level:    string(a.Level),
			Label:    a.Label,
			Selected: string(a.Level) == f.Aggregation,
		})
	}
	return f
}

// ResultView is a successful query rendered as chart and table.
type ResultView struct {
	Rows        []TableRow
	Chart       chart.Chart
	RecordCount string
	UpdatedAgo  string
	Summary     string
}

// TableRow is one measurement with its cells already formatted.
type TableRow struct {
	DateTime    string
	Station     string
	Temperature string
	Pressure    string
	Speed       string
}

// NewTableRows keeps the service order: row i is measurement i.
func NewTableRows(data []types.Measurement) []TableRow {
	rows := make([]TableRow, 0, len(data))
	for _, m := range data {
		rows = append(rows, TableRow{
			DateTime:    m.DateTime.Raw,
			Station:     m.Station,
			Temperature: formatOptional(m.Temperature, 1),
			Pressure:    formatOptional(m.Pressure, 0),
			Speed:       formatOptional(m.Speed, 1),
		})
	}
	return rows
}

// NewResultView builds the chart and table for data. vars are the plotted
// variables; settledAt and now drive the "updated" line.
func NewResultView(data []types.Measurement, vars []types.Variable, summary string, settledAt, now time.Time) *ResultView {
	return &ResultView{
		Rows:        NewTableRows(data),
		Chart:       chart.Build(data, vars),
		RecordCount: recordCount(len(data)),
		UpdatedAgo:  humanize.RelTime(settledAt, now, "ago", "from now"),
		Summary:     summary,
	}
}

func recordCount(n int) string {
	if n == 1 {
		return "1 record"
	}
	return humanize.Comma(int64(n)) + " records"
}

func formatOptional(v *float64, decimals int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}
