// Package chart lays out a time-series line chart as SVG geometry for the
// views templates. The x axis is categorical: point i belongs to the i-th
// measurement in the order the service returned them.
package chart

import (
	"math"
	"strconv"
	"strings"

	"antartida-viewer/internal/modules/antartida/types"
)

type Axis string

const (
	AxisLeft  Axis = "left"
	AxisRight Axis = "right"
)

const (
	defaultWidth  = 960
	defaultHeight = 384
	marginLeft    = 64
	marginRight   = 64
	marginTop     = 16
	marginBottom  = 88
	yTickCount    = 5
	maxXTicks     = 8
)

type seriesStyle struct {
	Label string
	Color string
	Axis  Axis
}

var styles = map[types.Variable]seriesStyle{
	types.VariableTemperature: {Label: "Temperature (°C)", Color: "#8884d8", Axis: AxisLeft},
	types.VariableSpeed:       {Label: "Wind speed (m/s)", Color: "#82ca9d", Axis: AxisRight},
	types.VariablePressure:    {Label: "Pressure (hPa)", Color: "#ffc658", Axis: AxisRight},
}

type Point struct {
	X, Y  float64
	Valid bool
}

type Series struct {
	Variable types.Variable
	Label    string
	Color    string
	Axis     Axis
	// Points has one entry per measurement; missing values are not Valid.
	Points []Point
	// Lines are SVG polyline "points" attributes, one per unbroken run.
	Lines []string
}

type Tick struct {
	Pos   float64
	Label string
}

type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

type Chart struct {
	Width, Height float64
	Plot          Rect
	Series        []Series
	XTicks        []Tick
	LeftTicks     []Tick
	RightTicks    []Tick
	HasLeft       bool
	HasRight      bool

	// Label anchors for the axes.
	LeftLabelX  float64
	RightLabelX float64
	XLabelY     float64
}

// Empty reports whether there is nothing to plot.
func (c Chart) Empty() bool {
	return len(c.Series) == 0 || len(c.Series[0].Points) == 0
}

// Build lays out one series per variable in vars over data.
func Build(data []types.Measurement, vars []types.Variable) Chart {
	c := Chart{
		Width:  defaultWidth,
		Height: defaultHeight,
		Plot: Rect{
			X: marginLeft,
			Y: marginTop,
			W: defaultWidth - marginLeft - marginRight,
			H: defaultHeight - marginTop - marginBottom,
		},
	}
	c.LeftLabelX = c.Plot.X - 6
	c.RightLabelX = c.Plot.Right() + 6
	c.XLabelY = c.Plot.Bottom() + 12

	left := newRange()
	right := newRange()
	for _, v := range vars {
		st, ok := styles[v]
		if !ok {
			continue
		}
		r := right
		if st.Axis == AxisLeft {
			r = left
			c.HasLeft = true
		} else {
			c.HasRight = true
		}
		for _, m := range data {
			if p := m.Value(v); p != nil {
				r.add(*p)
			}
		}
	}
	left.finish()
	right.finish()

	xs := make([]float64, len(data))
	for i := range data {
		xs[i] = c.xFor(i, len(data))
	}

	for _, v := range vars {
		st, ok := styles[v]
		if !ok {
			continue
		}
		r := right
		if st.Axis == AxisLeft {
			r = left
		}
		s := Series{
			Variable: v,
			Label:    st.Label,
			Color:    st.Color,
			Axis:     st.Axis,
			Points:   make([]Point, len(data)),
		}
		for i, m := range data {
			p := m.Value(v)
			if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
				s.Points[i] = Point{X: xs[i]}
				continue
			}
			s.Points[i] = Point{X: xs[i], Y: c.yFor(*p, r), Valid: true}
		}
		s.Lines = polylines(s.Points)
		c.Series = append(c.Series, s)
	}

	if c.HasLeft {
		c.LeftTicks = c.yTicks(left)
	}
	if c.HasRight {
		c.RightTicks = c.yTicks(right)
	}
	c.XTicks = c.xTicks(data, xs)
	return c
}

func (c Chart) xFor(i, n int) float64 {
	if n <= 1 {
		return c.Plot.X + c.Plot.W/2
	}
	return c.Plot.X + c.Plot.W*float64(i)/float64(n-1)
}

func (c Chart) yFor(v float64, r *valueRange) float64 {
	return c.Plot.Bottom() - (v-r.min)/(r.max-r.min)*c.Plot.H
}

func (c Chart) yTicks(r *valueRange) []Tick {
	ticks := make([]Tick, 0, yTickCount)
	step := (r.max - r.min) / float64(yTickCount-1)
	decimals := tickDecimals(r.max - r.min)
	for i := 0; i < yTickCount; i++ {
		v := r.min + step*float64(i)
		ticks = append(ticks, Tick{
			Pos:   c.yFor(v, r),
			Label: strconv.FormatFloat(v, 'f', decimals, 64),
		})
	}
	return ticks
}

// xTicks labels at most maxXTicks evenly spaced points and always keeps
// the first and the last one.
func (c Chart) xTicks(data []types.Measurement, xs []float64) []Tick {
	n := len(data)
	if n == 0 {
		return nil
	}
	stride := 1
	if n > maxXTicks {
		stride = int(math.Ceil(float64(n-1) / float64(maxXTicks-1)))
	}
	var ticks []Tick
	for i := 0; i < n; i += stride {
		if i != n-1 && n-1-i < stride/2 {
			continue
		}
		ticks = append(ticks, Tick{Pos: xs[i], Label: tickLabel(data[i])})
	}
	if last := n - 1; ticks[len(ticks)-1].Pos != xs[last] {
		ticks = append(ticks, Tick{Pos: xs[last], Label: tickLabel(data[last])})
	}
	return ticks
}

func tickLabel(m types.Measurement) string {
	if m.DateTime.Time.IsZero() {
		return m.DateTime.Raw
	}
	return m.DateTime.Time.Format("2006-01-02 15:04")
}

func tickDecimals(span float64) int {
	switch {
	case span >= 10:
		return 0
	case span >= 1:
		return 1
	default:
		return 2
	}
}

func polylines(points []Point) []string {
	var lines []string
	var b strings.Builder
	count := 0
	flush := func() {
		if count > 0 {
			lines = append(lines, b.String())
		}
		b.Reset()
		count = 0
	}
	for _, p := range points {
		if !p.Valid {
			flush()
			continue
		}
		if count > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(p.X, 'f', 1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Y, 'f', 1, 64))
		count++
	}
	flush()
	return lines
}

type valueRange struct {
	min, max float64
	seen     bool
}

func newRange() *valueRange {
	return &valueRange{}
}

func (r *valueRange) add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if !r.seen {
		r.min, r.max, r.seen = v, v, true
		return
	}
	r.min = math.Min(r.min, v)
	r.max = math.Max(r.max, v)
}

// finish pads a flat or empty range so the scale is never degenerate.
func (r *valueRange) finish() {
	if !r.seen {
		r.min, r.max = 0, 1
		return
	}
	if r.min == r.max {
		r.min--
		r.max++
	}
}
