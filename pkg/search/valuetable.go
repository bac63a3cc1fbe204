package search

import "sort"

// valueTable interns key-attribute values encountered during Build,
// backing id_to_value.v1/value_to_id.v1 so postings can carry a compact
// integer value_id instead of repeating the string per occurrence.
type valueTable struct {
	idToValue map[int]string
	valueToID map[string]int
	next      int
}

func newValueTable() *valueTable {
	return &valueTable{idToValue: map[int]string{}, valueToID: map[string]int{}}
}

func (t *valueTable) intern(value string) int {
	if id, ok := t.valueToID[value]; ok {
		return id
	}
	id := t.next
	t.next++
	t.valueToID[value] = id
	t.idToValue[id] = value
	return id
}

func (t *valueTable) sortedIDs() []int {
	ids := make([]int, 0, len(t.idToValue))
	for id := range t.idToValue {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (t *valueTable) sortedValues() []string {
	values := make([]string, 0, len(t.valueToID))
	for v := range t.valueToID {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
