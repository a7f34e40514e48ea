// Package pattern defines the synthetic intensity patterns that can be bound
// to a channel, their parameter validation, and the samplers that evaluate
// them voxel by voxel.
package pattern

import (
	"fmt"
	"math"
	"strings"
)

// Kind identifies a pattern variant.
type Kind int

const (
	KindUniform Kind = iota
	KindGradient
	KindGaussianSpots
	KindCircles
	KindMovingSpots
	KindSineWave
	KindNoise
)

var kindNames = [...]string{
	KindUniform:       "uniform",
	KindGradient:      "gradient",
	KindGaussianSpots: "gaussian_spots",
	KindCircles:       "circles",
	KindMovingSpots:   "moving_spots",
	KindSineWave:      "sine_wave",
	KindNoise:         "noise",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds returns every pattern kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// ParseKind maps a kind name to its Kind. Matching ignores case, and '-'
// may be used in place of '_'.
func ParseKind(name string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i, n := range kindNames {
		if n == norm {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pattern kind %q", name)
}

// Spec is the parameter set of one pattern kind. The set of implementations
// is closed: only the types in this package satisfy it.
type Spec interface {
	Kind() Kind
	Validate() error
	spec()
}

// Axis selects the spatial axis a Gradient runs along.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis maps "x", "y" or "z" to its Axis.
func ParseAxis(name string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "x", "":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown gradient axis %q", name)
}

// Seed returns a pointer to v, for the optional Seed fields.
func Seed(v uint64) *uint64 {
	return &v
}

// MaxSpots bounds the spot count of GaussianSpots and MovingSpots.
const MaxSpots = 4096

// Uniform is a constant value.
type Uniform struct {
	Value float64
}

// Gradient interpolates linearly from Min at index 0 to Max at the last index
// of Axis.
type Gradient struct {
	Min  float64
	Max  float64
	Axis Axis
}

// GaussianSpots sums Count Gaussian profiles centered at random positions of
// the Y,X plane. A nil Seed draws the centers from a time-derived seed.
type GaussianSpots struct {
	Count     int
	Sigma     float64
	Amplitude float64
	Seed      *uint64
}

// Circles draws concentric rings around the plane center. A pixel is lit when
// its radius modulo Spacing falls in the first half of the period.
type Circles struct {
	Spacing   float64
	Amplitude float64
}

// Velocity is a displacement in pixels per time point.
type Velocity struct {
	Y float64
	X float64
}

// MovingSpots is GaussianSpots whose centers move by Velocity per time point,
// clamped to the plane.
type MovingSpots struct {
	Count     int
	Sigma     float64
	Amplitude float64
	Velocity  Velocity
	Seed      *uint64
}

// SineWave varies along X as Amplitude·sin(2π·Frequency·x/W + Phase), with an
// optional extra phase of PhasePerFrame per time point.
type SineWave struct {
	Frequency     float64
	Phase         float64
	Amplitude     float64
	PhasePerFrame float64
}

// Noise is uniform noise in [Min, Max].
type Noise struct {
	Min  float64
	Max  float64
	Seed *uint64
}

func (Uniform) Kind() Kind { return KindUniform }
func (Gradient) Kind() Kind { return KindGradient }
func (GaussianSpots) Kind() Kind { return KindGaussianSpots }
func (Circles) Kind() Kind { return KindCircles }
func (MovingSpots) Kind() Kind { return KindMovingSpots }
func (SineWave) Kind() Kind { return KindSineWave }
func (Noise) Kind() Kind { return KindNoise }

func (Uniform) spec() {}
func (Gradient) spec() {}
func (GaussianSpots) spec() {}
func (Circles) spec() {}
func (MovingSpots) spec() {}
func (SineWave) spec() {}
func (Noise) spec() {}

func (s Uniform) Validate() error {
	return finite(KindUniform, "value", s.Value)
}

func (s Gradient) Validate() error {
	if err := finite(KindGradient, "min", s.Min); err != nil {
		return err
	}
	if err := finite(KindGradient, "max", s.Max); err != nil {
		return err
	}
	if s.Min > s.Max {
		return paramErr(KindGradient, "min", "must not exceed max (%g > %g)", s.Min, s.Max)
	}
	if s.Axis < AxisX || s.Axis > AxisZ {
		return paramErr(KindGradient, "axis", "unknown axis %d", int(s.Axis))
	}
	return nil
}

func (s GaussianSpots) Validate() error {
	return validateSpots(KindGaussianSpots, s.Count, s.Sigma, s.Amplitude)
}

func (s Circles) Validate() error {
	if err := finite(KindCircles, "spacing", s.Spacing); err != nil {
		return err
	}
	if s.Spacing <= 0 {
		return paramErr(KindCircles, "spacing", "must be positive, got %g", s.Spacing)
	}
	return finite(KindCircles, "amplitude", s.Amplitude)
}

func (s MovingSpots) Validate() error {
	if err := validateSpots(KindMovingSpots, s.Count, s.Sigma, s.Amplitude); err != nil {
		return err
	}
	if err := finite(KindMovingSpots, "velocity.y", s.Velocity.Y); err != nil {
		return err
	}
	return finite(KindMovingSpots, "velocity.x", s.Velocity.X)
}

func (s SineWave) Validate() error {
	params := []struct {
		name  string
		value float64
	}{
		{"frequency", s.Frequency},
		{"phase", s.Phase},
		{"amplitude", s.Amplitude},
		{"phase_per_frame", s.PhasePerFrame},
	}
	for _, p := range params {
		if err := finite(KindSineWave, p.name, p.value); err != nil {
			return err
		}
	}
	return nil
}

func (s Noise) Validate() error {
	if err := finite(KindNoise, "min", s.Min); err != nil {
		return err
	}
	if err := finite(KindNoise, "max", s.Max); err != nil {
		return err
	}
	if s.Min > s.Max {
		return paramErr(KindNoise, "min", "must not exceed max (%g > %g)", s.Min, s.Max)
	}
	return nil
}

func validateSpots(kind Kind, count int, sigma, amplitude float64) error {
	if count < 0 || count > MaxSpots {
		return paramErr(kind, "count", "must be in [0, %d], got %d", MaxSpots, count)
	}
	if err := finite(kind, "sigma", sigma); err != nil {
		return err
	}
	if sigma <= 0 {
		return paramErr(kind, "sigma", "must be positive, got %g", sigma)
	}
	return finite(kind, "amplitude", amplitude)
}

func finite(kind Kind, param string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return paramErr(kind, param, "must be finite, got %g", v)
	}
	return nil
}
