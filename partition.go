package fuzzsplit

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooManyLines is returned when a wordlist has more lines than fit in a 32-bit signed integer.
var ErrTooManyLines = errors.New("number of lines in wordlist is too big")

// PartitionCount returns how many partitions a wordlist of lines words needs so that each one
// can be sent at rate requests per second within minutes minutes.
// It always returns at least 1.
func PartitionCount(lines, rate, minutes int) (int, error) {
	if lines < 0 {
		return 0, fmt.Errorf("line count must not be negative, got %d", lines)
	}
	if lines > math.MaxInt32 {
		return 0, ErrTooManyLines
	}
	if rate <= 0 || minutes <= 0 {
		return 0, fmt.Errorf("rate and time must be positive, got rate %d and time %d", rate, minutes)
	}

	window := int64(rate) * 60 * int64(minutes)
	if window > math.MaxInt32 {
		return 0, fmt.Errorf("rate %d over %d minutes overflows the request window", rate, minutes)
	}

	return int(int64(lines)/window) + 1, nil
}
