package dataset

import (
	"slices"
)

// UnknownCode is returned for labels that were not seen when the encoder was built.
const UnknownCode = -1

// CategoryEncoder maps string labels to stable integer codes. Codes are
// assigned in sorted label order, so the same label set always yields the
// same mapping. Build it once at training time and reuse it for inference.
type CategoryEncoder struct {
	Labels []string
}

func NewCategoryEncoder(values []string) *CategoryEncoder {
	labels := slices.Clone(values)
	slices.Sort(labels)
	labels = slices.Compact(labels)
	if len(labels) > 0 && labels[0] == "" {
		labels = labels[1:]
	}
	return &CategoryEncoder{Labels: labels}
}

func (e *CategoryEncoder) Encode(label string) int {
	if e == nil || label == "" {
		return UnknownCode
	}
	if i, ok := slices.BinarySearch(e.Labels, label); ok {
		return i
	}
	return UnknownCode
}

func (e *CategoryEncoder) Decode(code int) (string, bool) {
	if e == nil || code < 0 || code >= len(e.Labels) {
		return "", false
	}
	return e.Labels[code], true
}

func (e *CategoryEncoder) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Labels)
}
