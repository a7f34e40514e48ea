package format

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"go.uber.org/zap"

	"tpzcyx/internal/atomicfile"
)

// byteOrder is the payload byte order. It is fixed by the format and does not
// depend on the host.
var byteOrder = binary.LittleEndian

// PlaneFunc fills the Y×X plane of frame (t, p, z, c). The plane is zeroed
// before each call and is reused between calls.
type PlaneFunc func(t, p, z, c int, plane []float32) error

// WriteOption configures Write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	logger     *zap.Logger
	bufferSize int
	perm       os.FileMode
}

func defaultWriteOptions() *writeOptions {
	return &writeOptions{
		logger:     zap.NewNop(),
		bufferSize: 1 << 20,
		perm:       0644,
	}
}

// WithLogger sets the logger used to report written datasets.
func WithLogger(logger *zap.Logger) WriteOption {
	return func(o *writeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBufferSize sets the payload write buffer size in bytes.
func WithBufferSize(n int) WriteOption {
	return func(o *writeOptions) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithPerm sets the permission bits of the created files.
func WithPerm(perm os.FileMode) WriteOption {
	return func(o *writeOptions) {
		o.perm = perm
	}
}

// Write stores a dataset under the base name of path. The descriptor is
// encoded first, then fill is called once per frame in payload order and each
// plane is appended to the payload as little-endian float32.
//
// Both files are written to temporary siblings and renamed into place only
// after the whole payload has been written, so a failed call leaves neither
// <name>.meta nor <name>.data behind. The descriptor is synced before the
// payload is published and is renamed last. If that final rename fails the
// new payload and any previous descriptor of the same name are removed, so
// no descriptor is left describing a payload that is not there.
//
// Planes are encoded in chunks of at most the buffer size, so memory use
// beyond the float32 plane passed to fill is bounded by the buffer.
func Write(path string, m Metadata, fill PlaneFunc, opts ...WriteOption) error {
	o := defaultWriteOptions()
	for _, opt := range opts {
		opt(o)
	}

	if err := m.Validate(); err != nil {
		return err
	}
	required, err := Budget(m.Dimensions)
	if err != nil {
		return err
	}
	descriptor, err := Encode(m)
	if err != nil {
		return err
	}

	metaPath, dataPath := Paths(path)

	metaFile, err := atomicfile.Create(metaPath, o.perm)
	if err != nil {
		return ioErr("create", metaPath, err)
	}
	defer metaFile.Abort()

	if _, err := metaFile.Write(descriptor); err != nil {
		return ioErr("write", metaPath, err)
	}
	if err := metaFile.Seal(); err != nil {
		return ioErr("sync", metaPath, err)
	}

	dataFile, err := atomicfile.Create(dataPath, o.perm)
	if err != nil {
		return ioErr("create", dataPath, err)
	}
	defer dataFile.Abort()

	dims := m.Dimensions
	bw := bufio.NewWriterSize(dataFile, o.bufferSize)
	plane := make([]float32, dims.PlaneLen())
	chunk := max(1, min(len(plane), o.bufferSize/BytesPerVoxel))
	raw := make([]byte, chunk*BytesPerVoxel)
	var written uint64

	for frame := 0; frame < dims.Frames(); frame++ {
		t, p, z, c := dims.FrameCoords(frame)
		clear(plane)
		if err := fill(t, p, z, c, plane); err != nil {
			return fmt.Errorf("filling frame t=%d p=%d z=%d c=%d: %w", t, p, z, c, err)
		}
		for lo := 0; lo < len(plane); lo += chunk {
			part := plane[lo:min(lo+chunk, len(plane))]
			encodePlane(raw, part)
			n, err := bw.Write(raw[:len(part)*BytesPerVoxel])
			written += uint64(n)
			if err != nil {
				return ioErr("write", dataPath, err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return ioErr("write", dataPath, err)
	}
	if written != required {
		return &MismatchError{Path: dataPath, Expected: required, Actual: written}
	}

	// Publish the payload first: a visible descriptor always has a complete
	// payload next to it.
	if err := dataFile.Commit(); err != nil {
		return ioErr("commit", dataPath, err)
	}
	if err := metaFile.Commit(); err != nil {
		os.Remove(dataPath)
		if fi, statErr := os.Lstat(metaPath); statErr == nil && fi.Mode().IsRegular() {
			os.Remove(metaPath)
		}
		return ioErr("commit", metaPath, err)
	}

	o.logger.Debug("dataset written",
		zap.String("meta", metaPath),
		zap.String("data", dataPath),
		zap.Stringer("dimensions", dims),
		zap.Uint64("bytes", written))
	return nil
}

// WriteVolume stores a materialised volume.
func WriteVolume(path string, v *Volume, opts ...WriteOption) error {
	expected, err := RequiredBytes(v.Metadata.Dimensions)
	if err != nil {
		return err
	}
	if actual := v.MemoryUsage(); actual != expected {
		_, dataPath := Paths(path)
		return &MismatchError{Path: dataPath, Expected: expected, Actual: actual}
	}
	return Write(path, v.Metadata, func(t, p, z, c int, plane []float32) error {
		src, err := v.Frame(t, p, z, c)
		if err != nil {
			return err
		}
		copy(plane, src)
		return nil
	}, opts...)
}

// Header describes a dataset whose descriptor decoded and whose payload size
// matches it. No payload bytes have been read.
type Header struct {
	Metadata     Metadata
	MetaPath     string
	DataPath     string
	MetaBytes    uint64
	PayloadBytes uint64
}

// ReadMetadata reads and decodes the descriptor of the dataset named by path.
func ReadMetadata(path string) (Metadata, error) {
	m, _, err := readDescriptor(path)
	return m, err
}

func readDescriptor(path string) (Metadata, uint64, error) {
	metaPath, _ := Paths(path)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return Metadata{}, 0, ioErr("read", metaPath, err)
	}
	m, err := decode(metaPath, data)
	if err != nil {
		return Metadata{}, 0, err
	}
	return m, uint64(len(data)), nil
}

// Stat decodes the descriptor and compares the payload file size against the
// size it implies. The payload itself is not read and the memory budget is
// not applied, so Stat also works for datasets too large to Load.
func Stat(path string) (Header, error) {
	m, metaBytes, err := readDescriptor(path)
	if err != nil {
		return Header{}, err
	}
	metaPath, dataPath := Paths(path)

	expected, err := RequiredBytes(m.Dimensions)
	if err != nil {
		return Header{}, err
	}
	fi, err := os.Stat(dataPath)
	if err != nil {
		return Header{}, ioErr("stat", dataPath, err)
	}
	if fi.IsDir() {
		return Header{}, ioErr("stat", dataPath, errors.New("is a directory"))
	}
	if actual := uint64(fi.Size()); actual != expected {
		return Header{}, &MismatchError{Path: dataPath, Expected: expected, Actual: actual}
	}

	return Header{
		Metadata:     m,
		MetaPath:     metaPath,
		DataPath:     dataPath,
		MetaBytes:    metaBytes,
		PayloadBytes: expected,
	}, nil
}

// Load reads a whole dataset into memory. The size check of Stat runs first,
// then the memory budget guard; a payload above the budget is rejected with a
// LimitError before anything is allocated, and Stat can still be used to
// report its expected and actual size.
func Load(path string) (*Volume, error) {
	h, err := Stat(path)
	if err != nil {
		return nil, err
	}
	if err := CheckBudget(h.PayloadBytes); err != nil {
		return nil, err
	}

	r, err := openFrames(h)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	v := &Volume{
		Metadata: h.Metadata,
		Data:     make([]float32, h.PayloadBytes/BytesPerVoxel),
	}
	n := h.Metadata.Dimensions.PlaneLen()
	for frame := 0; frame < h.Metadata.Dimensions.Frames(); frame++ {
		if err := r.next(v.Data[frame*n : (frame+1)*n]); err != nil {
			return nil, err
		}
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return v, nil
}

// FrameFunc receives one decoded plane. The plane is reused for the next
// frame and must be copied if retained.
type FrameFunc func(t, p, z, c int, plane []float32) error

// StreamFrames decodes the payload one plane at a time in payload order
// without materialising it. Memory use is bounded by a single Y×X plane.
func StreamFrames(path string, fn FrameFunc) error {
	h, err := Stat(path)
	if err != nil {
		return err
	}
	r, err := openFrames(h)
	if err != nil {
		return err
	}
	defer r.Close()

	dims := h.Metadata.Dimensions
	plane := make([]float32, dims.PlaneLen())
	for frame := 0; frame < dims.Frames(); frame++ {
		if err := r.next(plane); err != nil {
			return err
		}
		t, p, z, c := dims.FrameCoords(frame)
		if err := fn(t, p, z, c, plane); err != nil {
			return err
		}
	}
	return r.finish()
}

// ReadFrame reads the single Y×X plane at (t, p, z, c) by seeking directly to
// its offset.
func ReadFrame(path string, t, p, z, c int) ([]float32, error) {
	h, err := Stat(path)
	if err != nil {
		return nil, err
	}
	dims := h.Metadata.Dimensions
	if err := dims.checkFrame(t, p, z, c); err != nil {
		return nil, err
	}

	f, err := os.Open(h.DataPath)
	if err != nil {
		return nil, ioErr("open", h.DataPath, err)
	}
	defer f.Close()

	raw := make([]byte, dims.PlaneLen()*BytesPerVoxel)
	offset := int64(dims.FrameIndex(t, p, z, c)) * int64(len(raw))
	n, err := f.ReadAt(raw, offset)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &MismatchError{Path: h.DataPath, Expected: h.PayloadBytes, Actual: uint64(offset) + uint64(n)}
		}
		return nil, ioErr("read", h.DataPath, err)
	}
	plane := make([]float32, dims.PlaneLen())
	decodePlane(plane, raw)
	return plane, nil
}

// frameReader decodes consecutive planes from an open payload file.
type frameReader struct {
	h    Header
	f    *os.File
	br   *bufio.Reader
	raw  []byte
	read uint64
}

func openFrames(h Header) (*frameReader, error) {
	f, err := os.Open(h.DataPath)
	if err != nil {
		return nil, ioErr("open", h.DataPath, err)
	}
	return &frameReader{
		h:   h,
		f:   f,
		br:  bufio.NewReaderSize(f, 1<<20),
		raw: make([]byte, h.Metadata.Dimensions.PlaneLen()*BytesPerVoxel),
	}, nil
}

func (r *frameReader) next(dst []float32) error {
	n, err := io.ReadFull(r.br, r.raw)
	r.read += uint64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// The file shrank after Stat.
			return &MismatchError{Path: r.h.DataPath, Expected: r.h.PayloadBytes, Actual: r.read}
		}
		return ioErr("read", r.h.DataPath, err)
	}
	decodePlane(dst, r.raw)
	return nil
}

// finish verifies that nothing follows the last plane.
func (r *frameReader) finish() error {
	var one [1]byte
	n, err := r.br.Read(one[:])
	if n > 0 {
		fi, statErr := r.f.Stat()
		actual := r.read + 1
		if statErr == nil {
			actual = uint64(fi.Size())
		}
		return &MismatchError{Path: r.h.DataPath, Expected: r.h.PayloadBytes, Actual: actual}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return ioErr("read", r.h.DataPath, err)
	}
	return nil
}

func (r *frameReader) Close() error {
	return r.f.Close()
}

// encodePlane writes plane into dst as little-endian float32.
func encodePlane(dst []byte, plane []float32) {
	for i, v := range plane {
		byteOrder.PutUint32(dst[i*BytesPerVoxel:], math.Float32bits(v))
	}
}

// decodePlane is the inverse of encodePlane.
func decodePlane(dst []float32, raw []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(byteOrder.Uint32(raw[i*BytesPerVoxel:]))
	}
}
