package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SelectionSet holds the token ids a caller wants blacked out.
type SelectionSet map[int]struct{}

func NewSelection(ids ...int) SelectionSet {
	s := make(SelectionSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s SelectionSet) Contains(id int) bool {
	_, ok := s[id]
	return ok
}

func (s SelectionSet) Len() int { return len(s) }

// IDs returns the members in ascending order.
func (s SelectionSet) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ParseSelection decodes a JSON array of integers. Malformed input yields an
// empty set together with a non-nil error; callers treat that error as a
// warning and carry on with no redaction. Parsing is all-or-nothing: an array
// with one bad element, such as [1,"a"], drops the valid ids too.
func ParseSelection(raw string) (SelectionSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NewSelection(), nil
	}

	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return NewSelection(), fmt.Errorf("selected_ids is not a JSON array of integers: %w", err)
	}
	return NewSelection(ids...), nil
}
