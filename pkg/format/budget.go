package format

import (
	"fmt"
	"math/bits"
)

const (
	// MaxPayloadBytes is the hard ceiling on any payload this package will
	// allocate, write or load into memory.
	MaxPayloadBytes uint64 = 1 << 30

	// BytesPerVoxel is the size of one float32 sample.
	BytesPerVoxel = 4
)

// RequiredBytes returns the payload size implied by dims. Every axis must be
// positive, and the product is computed with overflow checks instead of
// wrapping.
func RequiredBytes(dims Dimensions) (uint64, error) {
	if err := dims.Validate(); err != nil {
		return 0, err
	}
	total := uint64(BytesPerVoxel)
	for _, n := range dims.Shape() {
		hi, lo := bits.Mul64(total, uint64(n))
		if hi != 0 {
			return 0, fmt.Errorf("%w: %s voxels of %d bytes", ErrOverflow, dims, BytesPerVoxel)
		}
		total = lo
	}
	return total, nil
}

// CheckBudget rejects sizes above MaxPayloadBytes.
func CheckBudget(required uint64) error {
	if required > MaxPayloadBytes {
		return &LimitError{Required: required, Limit: MaxPayloadBytes}
	}
	return nil
}

// Budget is RequiredBytes followed by CheckBudget. It is the guard run before
// any payload-sized buffer is allocated, on both the write and the read path.
func Budget(dims Dimensions) (uint64, error) {
	required, err := RequiredBytes(dims)
	if err != nil {
		return 0, err
	}
	if err := CheckBudget(required); err != nil {
		return 0, err
	}
	return required, nil
}
