package hilo

import (
	"strconv"
	"sync/atomic"
)

// RangeValue is an inclusive interval of IDs granted by the server.
type RangeValue struct {
	Low  int64
	High int64
}

// Size returns the number of IDs in the range.
func (r RangeValue) Size() int64 {
	if r.High < r.Low {
		return 0
	}
	return r.High - r.Low + 1
}

// IsEmpty reports whether the range holds no IDs.
func (r RangeValue) IsEmpty() bool {
	return r.High < r.Low
}

// Contains reports whether v lies within the range.
func (r RangeValue) Contains(v int64) bool {
	return v >= r.Low && v <= r.High
}

// rangeState is the range a generator currently issues from.
// cursor is the last issued value, Low-1 before the first take.
type rangeState struct {
	value     RangeValue
	prefix    string
	serverTag string
	cursor    atomic.Int64
}

func newRangeState(value RangeValue, prefix, serverTag string) *rangeState {
	s := &rangeState{
		value:     value,
		prefix:    prefix,
		serverTag: serverTag,
	}
	s.cursor.Store(value.Low - 1)
	return s
}

// take issues the next value. It reports false once the range is exhausted.
func (s *rangeState) take() (int64, bool) {
	id := s.cursor.Add(1)
	return id, id <= s.value.High
}

// next returns the value the next take would issue.
func (s *rangeState) next() int64 {
	return min(s.cursor.Load()+1, s.value.High+1)
}

func (s *rangeState) exhausted() bool {
	return s.cursor.Load() >= s.value.High
}

// close stops the range from issuing further values and returns the unused tail.
// Values taken before close keep their validity, values taken after it fail.
func (s *rangeState) close() (RangeValue, bool) {
	last := s.cursor.Swap(s.value.High)
	if last >= s.value.High {
		return RangeValue{}, false
	}
	return RangeValue{Low: last + 1, High: s.value.High}, true
}

// documentID formats {prefix}{id}-{serverTag}.
func (s *rangeState) documentID(id int64) string {
	doc := s.prefix + strconv.FormatInt(id, 10)
	if s.serverTag == "" {
		return doc
	}
	return doc + "-" + s.serverTag
}
