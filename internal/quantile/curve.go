package quantile

import (
	"fmt"
	"math"
)

// Model names.
const (
	ModelLogLinear = "loglinear"
	ModelPowerLaw  = "powerlaw"
)

var nan = math.NaN()

// Curve is a fitted trend curve. Curves are immutable values.
type Curve interface {
	// Model returns the curve family name.
	Model() string
	// Params returns the fitted parameters in canonical order.
	Params() []float64
	// Valid reports whether every parameter is finite.
	Valid() bool
	// Value evaluates the curve at a day index without any validity checks.
	Value(day float64) float64

	residual(s Sample) float64
}

// LogLinear is the two-parameter curve price = exp(Alpha + Beta*ln(day)).
type LogLinear struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// NaNLogLinear is the sentinel returned when there is not enough data.
func NaNLogLinear() LogLinear { return LogLinear{Alpha: nan, Beta: nan} }

func (l LogLinear) Model() string { return ModelLogLinear }
func (l LogLinear) Params() []float64 { return []float64{l.Alpha, l.Beta} }
func (l LogLinear) Valid() bool { return finite(l.Alpha) && finite(l.Beta) }

func (l LogLinear) Value(day float64) float64 {
	return math.Exp(l.Alpha + l.Beta*math.Log(day))
}

// residual is measured in log space, where the curve is fitted.
func (l LogLinear) residual(s Sample) float64 {
	return math.Log(s.Price) - (l.Alpha + l.Beta*math.Log(s.Day))
}

func (l LogLinear) String() string {
	return fmt.Sprintf("loglinear(alpha=%.6f, beta=%.6f)", l.Alpha, l.Beta)
}

// PowerLaw is the two-term curve price = A*day^B + C*day^D. After fitting,
// B <= D always holds, so the first term is the slower-growing one.
type PowerLaw struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
}

// NaNPowerLaw is the sentinel returned when there is not enough data.
func NaNPowerLaw() PowerLaw { return PowerLaw{A: nan, B: nan, C: nan, D: nan} }

func (p PowerLaw) Model() string { return ModelPowerLaw }
func (p PowerLaw) Params() []float64 { return []float64{p.A, p.B, p.C, p.D} }

func (p PowerLaw) Valid() bool {
	return finite(p.A) && finite(p.B) && finite(p.C) && finite(p.D)
}

func (p PowerLaw) Value(day float64) float64 {
	return p.A*math.Pow(day, p.B) + p.C*math.Pow(day, p.D)
}

func (p PowerLaw) residual(s Sample) float64 {
	return s.Price - p.Value(s.Day)
}

func (p PowerLaw) String() string {
	return fmt.Sprintf("powerlaw(a=%.6g, b=%.4f, c=%.6g, d=%.4f)", p.A, p.B, p.C, p.D)
}

// Canonical returns p with its terms ordered so that B <= D.
func (p PowerLaw) Canonical() PowerLaw {
	if p.B > p.D {
		return PowerLaw{A: p.C, B: p.D, C: p.A, D: p.B}
	}
	return p
}
