package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"antartida-viewer/internal/modules/antartida/query"
	"antartida-viewer/internal/modules/antartida/types"
	"antartida-viewer/internal/modules/antartida/views"
)

const (
	defaultLocation = "Europe/Berlin"
	defaultLookback = 7 * 24 * time.Hour
)

// formInputFromRequest reads the submitted form. Unchecked checkboxes are
// absent from the body and read as false.
func formInputFromRequest(r *http.Request) query.FormInput {
	return query.FormInput{
		Start:       r.PostFormValue("start"),
		End:         r.PostFormValue("end"),
		Station:     r.PostFormValue("station"),
		Location:    r.PostFormValue("location"),
		Aggregation: r.PostFormValue("aggregation"),
		Temperature: checkbox(r, "temperature"),
		Pressure:    checkbox(r, "pressure"),
		Speed:       checkbox(r, "speed"),
	}
}

func checkbox(r *http.Request, name string) bool {
	if _, ok := r.PostForm[name]; !ok {
		return false
	}
	v := strings.TrimSpace(r.PostFormValue(name))
	if v == "" || strings.EqualFold(v, "on") {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

// defaultForm is the form shown before any submission: the last seven
// days at Juan Carlos I, temperature and wind speed.
func (c *antartidaControllerImpl) defaultForm() views.FormView {
	now := c.now()
	return views.NewFormView(views.FormView{
		Start:       now.Add(-defaultLookback).Format(query.InputLayout),
		End:         now.Format(query.InputLayout),
		Station:     string(types.Stations[0].ID),
		Location:    c.defaultLocation,
		Aggregation: string(types.AggregationNone),
		Temperature: true,
		Pressure:    false,
		Speed:       true,
	})
}

// formFromInput echoes a rejected submission back to the user.
func formFromInput(in query.FormInput) views.FormView {
	return views.NewFormView(views.FormView{
		Start:       in.Start,
		End:         in.End,
		Station:     in.Station,
		Location:    in.Location,
		Aggregation: in.Aggregation,
		Temperature: in.Temperature,
		Pressure:    in.Pressure,
		Speed:       in.Speed,
	})
}

// formFromDescriptor shows the query behind the current state.
func formFromDescriptor(d query.Descriptor) views.FormView {
	f := views.FormView{
		Start:       formatInput(d.Start),
		End:         formatInput(d.End),
		Station:     string(d.Station),
		Location:    d.InputTimeZone,
		Aggregation: string(d.Aggregation),
	}
	for _, v := range d.Variables {
		switch v {
		case types.VariableTemperature:
			f.Temperature = true
		case types.VariablePressure:
			f.Pressure = true
		case types.VariableSpeed:
			f.Speed = true
		}
	}
	return views.NewFormView(f)
}

func formatInput(t time.Time) string {
	if t.Second() != 0 {
		return t.Format(query.RequestLayout)
	}
	return t.Format(query.InputLayout)
}

func stationName(id types.Station) string {
	for _, s := range types.Stations {
		if s.ID == id {
			return s.Name
		}
	}
	return string(id)
}

func summary(d query.Descriptor) string {
	vars := d.VariablesParam()
	if vars == "" {
		vars = "all variables"
	}
	return fmt.Sprintf("%s (%s) · %s → %s (%s) · %s · %s",
		stationName(d.Station), d.Station,
		d.StartParam(), d.EndParam(), d.InputTimeZone,
		d.Aggregation, vars,
	)
}
