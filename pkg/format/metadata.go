// Package format implements the TPZCYX split dataset format: a YAML
// descriptor (<name>.meta) next to a raw little-endian float32 payload
// (<name>.data), the memory budget guard shared by every read and write path,
// and an in-memory Volume for callers that materialise a payload.
package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// FormatVersion is the only descriptor version this package reads and writes.
	FormatVersion = 1

	// DTypeFloat32 is the only payload element type.
	DTypeFloat32 = "f32"

	// DefaultPixelSizeUM matches the objective used for most fixtures.
	DefaultPixelSizeUM = 0.65

	// DefaultTimeIntervalS is the frame interval written when none is given.
	DefaultTimeIntervalS = 1.0
)

// AxisNames lists the six axes in payload order, outermost first.
var AxisNames = [6]string{"t", "p", "z", "c", "y", "x"}

// Dimensions holds the length of each TPZCYX axis.
type Dimensions struct {
	T int `yaml:"t"`
	P int `yaml:"p"`
	Z int `yaml:"z"`
	C int `yaml:"c"`
	Y int `yaml:"y"`
	X int `yaml:"x"`
}

// NewDimensions builds Dimensions from axis lengths in TPZCYX order.
func NewDimensions(t, p, z, c, y, x int) Dimensions {
	return Dimensions{T: t, P: p, Z: z, C: c, Y: y, X: x}
}

// Shape returns the axis lengths in payload order.
func (d Dimensions) Shape() [6]int {
	return [6]int{d.T, d.P, d.Z, d.C, d.Y, d.X}
}

// Validate returns a DimensionError for the first non-positive axis.
func (d Dimensions) Validate() error {
	for i, n := range d.Shape() {
		if n <= 0 {
			return &DimensionError{Axis: AxisNames[i], Value: n}
		}
	}
	return nil
}

// Frames returns the number of Y×X planes in the dataset.
func (d Dimensions) Frames() int {
	return d.T * d.P * d.Z * d.C
}

// PlaneLen returns the number of voxels in one Y×X plane.
func (d Dimensions) PlaneLen() int {
	return d.Y * d.X
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%d×%d×%d×%d×%d×%d", d.T, d.P, d.Z, d.C, d.Y, d.X)
}

// Metadata describes one dataset. It is the only source of truth for
// interpreting the payload, which carries no header of its own.
type Metadata struct {
	Dimensions    Dimensions `yaml:"dimensions"`
	ChannelNames  []string   `yaml:"channel_names"`
	PixelSizeUM   float64    `yaml:"pixel_size_um" validate:"gt=0"`
	TimeIntervalS float64    `yaml:"time_interval_s" validate:"gte=0"`
	DType         string     `yaml:"dtype" validate:"eq=f32"`
	FormatVersion int        `yaml:"format_version" validate:"eq=1"`
}

// NewMetadata returns metadata for a float32 dataset of the current format
// version and checks every invariant.
func NewMetadata(dims Dimensions, channelNames []string, pixelSizeUM float64) (Metadata, error) {
	m := Metadata{
		Dimensions:    dims,
		ChannelNames:  append([]string(nil), channelNames...),
		PixelSizeUM:   pixelSizeUM,
		TimeIntervalS: DefaultTimeIntervalS,
		DType:         DTypeFloat32,
		FormatVersion: FormatVersion,
	}
	if err := m.Validate(); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// DefaultChannelNames returns "Channel1" … "ChannelN".
func DefaultChannelNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Channel%d", i+1)
	}
	return names
}

// Validate checks the metadata invariants. Non-positive dimensions are
// reported as a DimensionError; anything else as a plain error describing the
// offending field.
func (m Metadata) Validate() error {
	if err := m.Dimensions.Validate(); err != nil {
		return err
	}
	if err := schema.Struct(m); err != nil {
		return fieldError(err)
	}
	if !finite(m.PixelSizeUM) {
		return fmt.Errorf("pixel_size_um must be finite, got %v", m.PixelSizeUM)
	}
	if !finite(m.TimeIntervalS) {
		return fmt.Errorf("time_interval_s must be finite, got %v", m.TimeIntervalS)
	}
	if len(m.ChannelNames) != m.Dimensions.C {
		return fmt.Errorf("channel_names has %d entries, dimensions.c is %d", len(m.ChannelNames), m.Dimensions.C)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// schema validates both the public Metadata and the wire descriptor below.
// Field names in its errors follow the YAML keys.
var schema = newSchema()

func newSchema() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldError turns validator output into a short message naming the first
// offending descriptor key.
func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	key := fe.Namespace()
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("missing required key %s", key)
	case "eq":
		return fmt.Errorf("%s must be %s, got %v", key, fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s fails %s%s, got %v", key, fe.Tag(), prefixed(fe.Param()), fe.Value())
	}
}

func prefixed(param string) string {
	if param == "" {
		return ""
	}
	return "=" + param
}

// descriptor is the on-disk schema. Pointer fields distinguish a missing key
// from a zero value so that incomplete descriptors are rejected instead of
// silently defaulted.
type descriptor struct {
	Dimensions    *wireDimensions `yaml:"dimensions" validate:"required"`
	ChannelNames  []string        `yaml:"channel_names" validate:"required"`
	PixelSizeUM   *float64        `yaml:"pixel_size_um" validate:"required"`
	TimeIntervalS *float64        `yaml:"time_interval_s"`
	DType         *string         `yaml:"dtype" validate:"required"`
	FormatVersion *int            `yaml:"format_version" validate:"required"`
}

type wireDimensions struct {
	T *int `yaml:"t" validate:"required"`
	P *int `yaml:"p" validate:"required"`
	Z *int `yaml:"z" validate:"required"`
	C *int `yaml:"c" validate:"required"`
	Y *int `yaml:"y" validate:"required"`
	X *int `yaml:"x" validate:"required"`
}

// Encode renders the descriptor. The output is stable for equal metadata.
func Encode(m Metadata) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding descriptor: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding descriptor: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a descriptor. Unknown keys, missing keys, wrongly typed values
// and invariant violations all fail with a ParseError; nothing is coerced.
// JSON descriptors are accepted as well since JSON is valid YAML.
func Decode(data []byte) (Metadata, error) {
	return decode("", data)
}

func decode(path string, data []byte) (Metadata, error) {
	var d descriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return Metadata{}, &ParseError{Path: path, Reason: "empty descriptor"}
		}
		return Metadata{}, &ParseError{Path: path, Reason: "invalid YAML", Err: err}
	}
	if err := schema.Struct(d); err != nil {
		return Metadata{}, &ParseError{Path: path, Reason: fieldError(err).Error()}
	}

	m := Metadata{
		Dimensions: Dimensions{
			T: *d.Dimensions.T,
			P: *d.Dimensions.P,
			Z: *d.Dimensions.Z,
			C: *d.Dimensions.C,
			Y: *d.Dimensions.Y,
			X: *d.Dimensions.X,
		},
		ChannelNames:  d.ChannelNames,
		PixelSizeUM:   *d.PixelSizeUM,
		TimeIntervalS: DefaultTimeIntervalS,
		DType:         *d.DType,
		FormatVersion: *d.FormatVersion,
	}
	if d.TimeIntervalS != nil {
		m.TimeIntervalS = *d.TimeIntervalS
	}
	// Invariant violations keep their message but not their error kind: a
	// descriptor with a zero axis is a parse failure, not a request error.
	if err := m.Validate(); err != nil {
		return Metadata{}, &ParseError{Path: path, Reason: err.Error()}
	}
	return m, nil
}
