package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

type span struct {
	name       string
	start, end int64
}

// validateOffsets checks for overlapping tensor data and out-of-bounds access.
func validateOffsets(header map[string]TensorHeader, dataSize int64) error {
	if len(header) > MaxTensorCount {
		return &ValidationError{
			Kind:    ErrTooManyTensors,
			Details: fmt.Sprintf("got %d, max %d", len(header), MaxTensorCount),
		}
	}

	spans := make([]span, 0, len(header))
	for name, h := range header {
		spans = append(spans, span{name, h.DataOffsets[0], h.DataOffsets[1]})
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].name < spans[j].name
	})

	for i, s := range spans {
		if s.start < 0 || s.end < s.start {
			return &ValidationError{
				Kind:    ErrNegativeOffset,
				Tensor:  s.name,
				Details: fmt.Sprintf("data_offsets=[%d, %d]", s.start, s.end),
			}
		}
		if s.end > dataSize {
			return &ValidationError{
				Kind:    ErrOutOfBounds,
				Tensor:  s.name,
				Details: fmt.Sprintf("end %d > data_size %d", s.end, dataSize),
			}
		}
		if i < len(spans)-1 {
			next := spans[i+1]
			if s.end > next.start {
				return &ValidationError{
					Kind:    ErrOffsetOverlap,
					Tensor:  s.name,
					Tensor2: next.name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap", s.start, s.end, next.start, next.end),
				}
			}
		}
	}
	return nil
}

// ValidateTensorName rejects names that could escape a directory when used as a path.
func ValidateTensorName(name string) error {
	if name == "" || len(name) > MaxTensorNameLen {
		return &ValidationError{
			Kind:    ErrInvalidTensorName,
			Tensor:  name,
			Details: fmt.Sprintf("length %d not in [1, %d]", len(name), MaxTensorNameLen),
		}
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\\x00") {
		return &ValidationError{
			Kind:    ErrInvalidTensorName,
			Tensor:  name,
			Details: "contains a path separator, '..' or a null byte",
		}
	}
	if name == metadataKey {
		return &ValidationError{Kind: ErrInvalidTensorName, Tensor: name, Details: "reserved"}
	}
	return nil
}
