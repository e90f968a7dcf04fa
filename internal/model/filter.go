package model

import (
	"fmt"
	"strings"
)

// Filter names a single image filter the batch can apply.
type Filter string

const (
	FilterSharpen Filter = "sharpen" // strong sharpness enhancement
	FilterSepia   Filter = "sepia"   // grayscale followed by contour detection
	FilterResize  Filter = "resize"  // fixed 100x100 resize
)

// canonicalOrder is the order filters are applied in, whatever order they were selected in.
var canonicalOrder = [...]Filter{FilterSharpen, FilterSepia, FilterResize}

func (f Filter) bit() FilterSelection {
	for i, c := range canonicalOrder {
		if c == f {
			return 1 << i
		}
	}
	return 0
}

// ParseFilter converts a user-supplied name into a Filter.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if f.bit() == 0 {
		return "", fmt.Errorf("unknown filter: %q", s)
	}
	return f, nil
}

// FilterSelection is an immutable set of filters.
type FilterSelection uint8

// NewFilterSelection builds a selection from the given filters. Unknown values are ignored.
func NewFilterSelection(filters ...Filter) FilterSelection {
	var s FilterSelection
	for _, f := range filters {
		s = s.With(f)
	}
	return s
}

// With returns a copy of the selection that also contains f.
func (s FilterSelection) With(f Filter) FilterSelection {
	return s | f.bit()
}

// Has reports whether f is selected.
func (s FilterSelection) Has(f Filter) bool {
	b := f.bit()
	return b != 0 && s&b != 0
}

// Empty reports whether nothing is selected.
func (s FilterSelection) Empty() bool {
	return s == 0
}

// Filters returns the selected filters in application order: sharpen, sepia, resize.
func (s FilterSelection) Filters() []Filter {
	out := make([]Filter, 0, len(canonicalOrder))
	for _, f := range canonicalOrder {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s FilterSelection) String() string {
	filters := s.Filters()
	names := make([]string, len(filters))
	for i, f := range filters {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}
