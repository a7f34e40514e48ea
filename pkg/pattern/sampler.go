package pattern

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"tpzcyx/pkg/format"
)

// Coord addresses one voxel.
type Coord struct {
	T, P, Z, C, Y, X int
}

// Sampler evaluates one channel's pattern. Samplers are not safe for
// concurrent use.
type Sampler interface {
	At(t, p, z, y, x int) float32
}

// NewSampler validates spec and prepares it for evaluation over dims as
// channel number channel. Random centers are drawn here, once, so every
// (t, p, z) slice of the channel shares them.
func NewSampler(spec Spec, dims format.Dimensions, channel int) (Sampler, error) {
	if spec == nil {
		return nil, fmt.Errorf("channel %d has no pattern", channel)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := dims.Validate(); err != nil {
		return nil, err
	}

	switch s := spec.(type) {
	case Uniform:
		return uniformSampler(float32(s.Value)), nil
	case Gradient:
		return gradientSampler{spec: s}.with(dims), nil
	case GaussianSpots:
		seed := resolveSeed(s.Seed, channel)
		return &spotSampler{
			centers:   drawCenters(s.Count, dims, seed),
			sigma:     s.Sigma,
			amplitude: s.Amplitude,
		}, nil
	case Circles:
		return circleSampler{
			cy:      float64(dims.Y) / 2,
			cx:      float64(dims.X) / 2,
			spacing: s.Spacing,
			amp:     float32(s.Amplitude),
		}, nil
	case MovingSpots:
		seed := resolveSeed(s.Seed, channel)
		return &movingSampler{
			spotSampler: spotSampler{
				centers:   drawCenters(s.Count, dims, seed),
				sigma:     s.Sigma,
				amplitude: s.Amplitude,
			},
			velocity: s.Velocity,
			maxY:     float64(dims.Y - 1),
			maxX:     float64(dims.X - 1),
			t:        -1,
		}, nil
	case SineWave:
		return sineSampler{spec: s, width: float64(dims.X)}, nil
	case Noise:
		return newNoiseSampler(s, dims, resolveSeed(s.Seed, channel)), nil
	}
	return nil, fmt.Errorf("unsupported pattern %T", spec)
}

// Intensity evaluates spec at a single voxel. It is deterministic for the
// non-random kinds and for random kinds with a Seed.
func Intensity(spec Spec, at Coord, dims format.Dimensions) (float32, error) {
	s, err := NewSampler(spec, dims, at.C)
	if err != nil {
		return 0, err
	}
	if !dims.Contains(at.T, at.P, at.Z, at.C, at.Y, at.X) {
		return 0, fmt.Errorf("coordinate %+v outside %s", at, dims)
	}
	return s.At(at.T, at.P, at.Z, at.Y, at.X), nil
}

// FillPlane evaluates s over the Y×X plane of slice (t, p, z) in payload
// order.
func FillPlane(s Sampler, t, p, z int, plane []float32, width int) {
	for i := range plane {
		plane[i] = s.At(t, p, z, i/width, i%width)
	}
}

// resolveSeed returns the explicit seed or, when there is none, one derived
// from the wall clock and the channel number.
func resolveSeed(seed *uint64, channel int) uint64 {
	if seed != nil {
		return *seed
	}
	return uint64(time.Now().UnixNano()) + uint64(channel)*0x9e3779b97f4a7c15
}

type uniformSampler float32

func (u uniformSampler) At(_, _, _, _, _ int) float32 { return float32(u) }

type gradientSampler struct {
	spec Gradient
	n    int
}

func (g gradientSampler) with(dims format.Dimensions) gradientSampler {
	switch g.spec.Axis {
	case AxisX:
		g.n = dims.X
	case AxisY:
		g.n = dims.Y
	case AxisZ:
		g.n = dims.Z
	}
	return g
}

func (g gradientSampler) At(_, _, z, y, x int) float32 {
	if g.n <= 1 {
		return float32(g.spec.Min)
	}
	i := x
	switch g.spec.Axis {
	case AxisY:
		i = y
	case AxisZ:
		i = z
	}
	frac := float64(i) / float64(g.n-1)
	return float32(g.spec.Min + (g.spec.Max-g.spec.Min)*frac)
}

type point struct {
	y, x float64
}

// drawCenters draws count spot centers uniformly over [0, Y-1]×[0, X-1].
func drawCenters(count int, dims format.Dimensions, seed uint64) []point {
	src := rand.NewSource(seed)
	ys := distuv.Uniform{Min: 0, Max: float64(dims.Y - 1), Src: src}
	xs := distuv.Uniform{Min: 0, Max: float64(dims.X - 1), Src: src}
	centers := make([]point, count)
	for i := range centers {
		centers[i] = point{y: ys.Rand(), x: xs.Rand()}
	}
	return centers
}

type spotSampler struct {
	centers   []point
	sigma     float64
	amplitude float64
}

func (s *spotSampler) At(_, _, _, y, x int) float32 {
	return s.sum(s.centers, y, x)
}

func (s *spotSampler) sum(centers []point, y, x int) float32 {
	inv := 1 / (2 * s.sigma * s.sigma)
	var v float64
	for _, c := range centers {
		dy := float64(y) - c.y
		dx := float64(x) - c.x
		v += s.amplitude * math.Exp(-(dy*dy+dx*dx)*inv)
	}
	return float32(v)
}

type movingSampler struct {
	spotSampler
	velocity   Velocity
	maxY, maxX float64

	// shifted caches the centers of time point t.
	t       int
	shifted []point
}

func (m *movingSampler) At(t, _, _, y, x int) float32 {
	if t != m.t {
		m.shift(t)
	}
	return m.sum(m.shifted, y, x)
}

func (m *movingSampler) shift(t int) {
	if m.shifted == nil {
		m.shifted = make([]point, len(m.centers))
	}
	for i, c := range m.centers {
		m.shifted[i] = point{
			y: clamp(c.y+m.velocity.Y*float64(t), 0, m.maxY),
			x: clamp(c.x+m.velocity.X*float64(t), 0, m.maxX),
		}
	}
	m.t = t
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

type circleSampler struct {
	cy, cx  float64
	spacing float64
	amp     float32
}

func (c circleSampler) At(_, _, _, y, x int) float32 {
	r := math.Hypot(float64(y)-c.cy, float64(x)-c.cx)
	if math.Mod(r, c.spacing) < c.spacing/2 {
		return c.amp
	}
	return 0
}

type sineSampler struct {
	spec  SineWave
	width float64
}

func (s sineSampler) At(t, _, _, _, x int) float32 {
	arg := 2*math.Pi*s.spec.Frequency*float64(x)/s.width + s.spec.Phase + s.spec.PhasePerFrame*float64(t)
	return float32(s.spec.Amplitude * math.Sin(arg))
}

// noiseSampler draws each voxel from the channel source reseeded at the
// voxel's index within the channel, so a value depends only on the seed and
// its coordinates, never on evaluation order.
type noiseSampler struct {
	dist distuv.Uniform
	rng  *rand.Rand
	seed uint64
	dims format.Dimensions
}

func newNoiseSampler(s Noise, dims format.Dimensions, seed uint64) *noiseSampler {
	return &noiseSampler{
		dist: distuv.Uniform{Min: s.Min, Max: s.Max},
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
		dims: dims,
	}
}

func (n *noiseSampler) At(t, p, z, y, x int) float32 {
	d := n.dims
	index := ((uint64(t)*uint64(d.P)+uint64(p))*uint64(d.Z)+uint64(z))*uint64(d.Y*d.X) + uint64(y*d.X+x)
	n.rng.Seed(mix(n.seed ^ mix(index)))
	v := float32(n.dist.Quantile(n.rng.Float64()))
	// float64 to float32 rounding may step just outside the bounds.
	return min(max(v, float32(n.dist.Min)), float32(n.dist.Max))
}

// mix is the splitmix64 finaliser.
func mix(v uint64) uint64 {
	v += 0x9e3779b97f4a7c15
	v = (v ^ (v >> 30)) * 0xbf58476d1ce4e5b9
	v = (v ^ (v >> 27)) * 0x94d049bb133111eb
	return v ^ (v >> 31)
}
