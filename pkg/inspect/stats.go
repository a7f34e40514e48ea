package inspect

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSaturationThreshold is the value at or above which a pixel counts as
// saturated when no threshold is configured.
const DefaultSaturationThreshold = 1000.0

// ChannelStats summarises every voxel of one channel.
type ChannelStats struct {
	Index  int
	Name   string
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// FrameStats summarises one Y×X plane. StdDev is the population standard
// deviation.
type FrameStats struct {
	T, P, Z, C int

	Mean      float64
	Median    float64
	StdDev    float64
	Min       float64
	Max       float64
	Pixels    int
	Saturated int
	Threshold float64
}

// SaturatedFraction returns the share of saturated pixels in [0, 1].
func (s FrameStats) SaturatedFraction() float64 {
	if s.Pixels == 0 {
		return 0
	}
	return float64(s.Saturated) / float64(s.Pixels)
}

// ComputeFrameStats computes the statistics of plane. An empty plane yields
// zero values.
func ComputeFrameStats(plane []float32, threshold float64) FrameStats {
	return frameStats(toFloat64(nil, plane), threshold)
}

// frameStats computes the statistics of values and sorts them in place.
func frameStats(values []float64, threshold float64) FrameStats {
	s := FrameStats{Pixels: len(values), Threshold: threshold}
	if len(values) == 0 {
		return s
	}

	s.Mean, s.StdDev = stat.PopMeanStdDev(values, nil)
	for _, v := range values {
		if v >= threshold {
			s.Saturated++
		}
	}

	slices.Sort(values)
	s.Min = values[0]
	s.Max = values[len(values)-1]
	n := len(values)
	if n%2 == 0 {
		s.Median = (values[n/2-1] + values[n/2]) / 2
	} else {
		s.Median = values[n/2]
	}
	return s
}

// channelAccumulator merges the statistics of one channel's frames as they
// are streamed. Frames are combined with the pairwise update of Chan et al.,
// so a constant channel keeps an exact mean and a zero deviation.
type channelAccumulator struct {
	n        float64
	mean, m2 float64
	min, max float64
}

func (a *channelAccumulator) add(values []float64) {
	if len(values) == 0 {
		return
	}
	lo, hi := floats.Min(values), floats.Max(values)
	mean, variance := stat.PopMeanVariance(values, nil)
	nb := float64(len(values))

	if a.n == 0 {
		a.n, a.mean, a.m2 = nb, mean, variance*nb
		a.min, a.max = lo, hi
		return
	}
	n := a.n + nb
	delta := mean - a.mean
	a.mean += delta * nb / n
	a.m2 += variance*nb + delta*delta*a.n*nb/n
	a.n = n
	a.min = min(a.min, lo)
	a.max = max(a.max, hi)
}

func (a *channelAccumulator) stats(index int, name string) ChannelStats {
	cs := ChannelStats{Index: index, Name: name}
	if a.n == 0 {
		return cs
	}
	cs.Min, cs.Max, cs.Mean = a.min, a.max, a.mean
	cs.StdDev = math.Sqrt(a.m2 / a.n)
	return cs
}

func toFloat64(dst []float64, src []float32) []float64 {
	dst = slices.Grow(dst[:0], len(src))
	for _, v := range src {
		dst = append(dst, float64(v))
	}
	return dst
}
