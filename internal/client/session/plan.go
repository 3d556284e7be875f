package session

import (
	"fmt"

	"github.com/dmitrijs2005/casupload/internal/common"
)

// Range locates part Number inside the file.
type Range struct {
	Number int
	Offset int64
	Length int64
}

// Plan splits size bytes into ceil(size/window) consecutive parts.
func Plan(size, window int64) ([]Range, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", common.ErrValidation)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size", common.ErrValidation)
	}

	count := size / window
	if size%window != 0 {
		count++
	}
	if count > common.MaxPartNumber {
		return nil, fmt.Errorf("%w: %d parts exceed the limit of %d", common.ErrValidation, count, common.MaxPartNumber)
	}

	parts := make([]Range, 0, count)
	for i := int64(0); i < count; i++ {
		off := i * window
		parts = append(parts, Range{
			Number: int(i) + 1,
			Offset: off,
			Length: min(window, size-off),
		})
	}
	return parts, nil
}
