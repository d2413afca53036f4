// Package query validates the raw form fields of a measurement query and
// turns them into an immutable Descriptor.
package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"antartida-viewer/internal/modules/antartida/types"
)

// Field names a form input that can carry a validation message.
type Field string

const (
	FieldStart       Field = "start"
	FieldEnd         Field = "end"
	FieldStation     Field = "station"
	FieldLocation    Field = "location"
	FieldAggregation Field = "aggregation"
)

const (
	// InputLayout is the HTML datetime-local format.
	InputLayout = "2006-01-02T15:04"
	// RequestLayout is what the remote service expects in the path.
	RequestLayout = "2006-01-02T15:04:05"
)

const (
	msgStartRequired    = "Start date is required"
	msgEndRequired      = "End date is required"
	msgStationRequired  = "Select a station"
	msgLocationRequired = "Time zone is required"
	msgAggregation      = "Select a valid aggregation level"
	msgInvalidDateTime  = "Invalid date-time (expected YYYY-MM-DDTHH:MM)"
	msgStartBeforeEnd   = "Start date must be before end date"
)

// FormInput holds the raw values as submitted by the user.
type FormInput struct {
	Start       string
	End         string
	Station     string
	Location    string
	Aggregation string
	Temperature bool
	Pressure    bool
	Speed       bool
}

// Descriptor is a validated query. It is built once per submission and
// never modified afterwards.
type Descriptor struct {
	Start         time.Time
	End           time.Time
	Station       types.Station
	InputTimeZone string
	Aggregation   types.Aggregation
	// Variables is empty when every variable is wanted.
	Variables []types.Variable
}

// StartParam renders the start time with the seconds component the remote
// service expects.
func (d Descriptor) StartParam() string {
	return d.Start.Format(RequestLayout)
}

func (d Descriptor) EndParam() string {
	return d.End.Format(RequestLayout)
}

// VariablesParam is the comma-joined variable set, or "" for all variables.
func (d Descriptor) VariablesParam() string {
	names := make([]string, 0, len(d.Variables))
	for _, v := range d.Variables {
		names = append(names, string(v))
	}
	return strings.Join(names, ",")
}

// SelectedVariables expands an empty selection to every variable.
func (d Descriptor) SelectedVariables() []types.Variable {
	if len(d.Variables) == 0 {
		return types.AllVariables
	}
	return d.Variables
}

// FieldErrors maps a form field to its human-readable message.
type FieldErrors map[Field]string

func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return &ValidationError{Fields: fe}
}

type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[Field(k)]))
	}
	return "invalid query: " + strings.Join(parts, "; ")
}

// Build validates in and returns the descriptor, or the per-field errors.
// The start/end ordering is checked on the naive date-times; the location
// label is carried to the request but does not shift either value.
func Build(in FormInput) (Descriptor, FieldErrors) {
	errs := FieldErrors{}

	startRaw := strings.TrimSpace(in.Start)
	endRaw := strings.TrimSpace(in.End)
	if startRaw == "" {
		errs[FieldStart] = msgStartRequired
	}
	if endRaw == "" {
		errs[FieldEnd] = msgEndRequired
	}

	station := types.Station(strings.TrimSpace(in.Station))
	if !station.Valid() {
		errs[FieldStation] = msgStationRequired
	}

	location := strings.TrimSpace(in.Location)
	if location == "" {
		errs[FieldLocation] = msgLocationRequired
	}

	aggregation := types.Aggregation(strings.TrimSpace(in.Aggregation))
	if aggregation == "" {
		aggregation = types.AggregationNone
	}
	if !aggregation.Valid() {
		errs[FieldAggregation] = msgAggregation
	}

	var start, end time.Time
	var startOK, endOK bool
	if startRaw != "" {
		var err error
		start, err = ParseLocal(startRaw)
		if err != nil {
			errs[FieldStart] = msgInvalidDateTime
		} else {
			startOK = true
		}
	}
	if endRaw != "" {
		var err error
		end, err = ParseLocal(endRaw)
		if err != nil {
			errs[FieldEnd] = msgInvalidDateTime
		} else {
			endOK = true
		}
	}
	if startOK && endOK && !start.Before(end) {
		errs[FieldEnd] = msgStartBeforeEnd
	}

	if len(errs) > 0 {
		return Descriptor{}, errs
	}

	return Descriptor{
		Start:         start,
		End:           end,
		Station:       station,
		InputTimeZone: location,
		Aggregation:   aggregation,
		Variables:     selectVariables(in.Temperature, in.Pressure, in.Speed),
	}, nil
}

// ParseLocal parses a naive date-time with or without seconds. The result
// is in UTC only as a carrier; no zone conversion is implied.
func ParseLocal(s string) (time.Time, error) {
	if t, err := time.Parse(InputLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(RequestLayout, s)
}

func selectVariables(temperature, pressure, speed bool) []types.Variable {
	vars := make([]types.Variable, 0, 3)
	if temperature {
		vars = append(vars, types.VariableTemperature)
	}
	if pressure {
		vars = append(vars, types.VariablePressure)
	}
	if speed {
		vars = append(vars, types.VariableSpeed)
	}
	return vars
}
