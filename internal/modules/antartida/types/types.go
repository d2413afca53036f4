// Package types holds the stations, aggregation levels, variables and
// measurement records exchanged with the Antarctic measurement service.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Station is the code of one of the two Antarctic measurement sites.
type Station string

const (
	StationJuanCarlosI       Station = "89064"
	StationGabrielDeCastilla Station = "89070"
)

// Stations lists the accepted stations; the first one is the form default.
var Stations = []StationInfo{
	{ID: StationJuanCarlosI, Name: "Meteo Station Juan Carlos I"},
	{ID: StationGabrielDeCastilla, Name: "Meteo Station Gabriel de Castilla"},
}

type StationInfo struct {
	ID   Station
	Name string
}

func (s Station) Valid() bool {
	for _, info := range Stations {
		if info.ID == s {
			return true
		}
	}
	return false
}

// Aggregation is the server-side temporal bucketing of the 10-minute samples.
type Aggregation string

const (
	AggregationNone    Aggregation = "None"
	AggregationHourly  Aggregation = "Hourly"
	AggregationDaily   Aggregation = "Daily"
	AggregationMonthly Aggregation = "Monthly"
)

var Aggregations = []AggregationInfo{
	{Level: AggregationNone, Label: "No aggregation (10 minutes)"},
	{Level: AggregationHourly, Label: "Hourly"},
	{Level: AggregationDaily, Label: "Daily"},
	{Level: AggregationMonthly, Label: "Monthly"},
}

type AggregationInfo struct {
	Level Aggregation
	Label string
}

func (a Aggregation) Valid() bool {
	switch a {
	case AggregationNone, AggregationHourly, AggregationDaily, AggregationMonthly:
		return true
	}
	return false
}

// Variable is one of the measured quantities that can be requested.
type Variable string

const (
	VariableTemperature Variable = "temperature"
	VariablePressure    Variable = "pressure"
	VariableSpeed       Variable = "speed"
)

// AllVariables is the canonical variable order used in requests and charts.
var AllVariables = []Variable{VariableTemperature, VariablePressure, VariableSpeed}

// Measurement is a single record returned by the remote service.
type Measurement struct {
	Station     string    `json:"station"`
	DateTime    Timestamp `json:"datetime"`
	Temperature *float64  `json:"temperature,omitempty"`
	Pressure    *float64  `json:"pressure,omitempty"`
	Speed       *float64  `json:"speed,omitempty"`
}

// Value returns the measured value for v, or nil when absent.
func (m Measurement) Value(v Variable) *float64 {
	switch v {
	case VariableTemperature:
		return m.Temperature
	case VariablePressure:
		return m.Pressure
	case VariableSpeed:
		return m.Speed
	}
	return nil
}

var errMissingField = errors.New("missing required field")

func (m *Measurement) UnmarshalJSON(b []byte) error {
	type alias Measurement
	var raw struct {
		alias
		Station  *string    `json:"station"`
		DateTime *Timestamp `json:"datetime"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Station == nil {
		return fmt.Errorf("measurement: %w %q", errMissingField, "station")
	}
	if raw.DateTime == nil {
		return fmt.Errorf("measurement: %w %q", errMissingField, "datetime")
	}
	*m = Measurement(raw.alias)
	m.Station = *raw.Station
	m.DateTime = *raw.DateTime
	return nil
}

// timestampLayouts covers RFC 3339 and the compact "+0100" offset form.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999-0700",
}

// Timestamp is a point in time with offset that remembers its wire text.
type Timestamp struct {
	Raw  string
	Time time.Time
}

func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Timestamp{Raw: s, Time: t}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return Timestamp{}, fmt.Errorf("invalid datetime %q: %w", s, firstErr)
}

func (ts Timestamp) String() string {
	return ts.Raw
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.Raw)
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("datetime: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
