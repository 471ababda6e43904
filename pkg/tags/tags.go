// Package tags merges configured bucket tags into a bucket's existing tag set.
package tags

import "sort"

type Tag struct {
	Key   string
	Value string
}

// FromMap converts configured tags to a tag list ordered by key.
func FromMap(m map[string]string) []Tag {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, Tag{Key: k, Value: m[k]})
	}
	return out
}

// Merge overlays desired onto existing. Existing keys keep their position
// and take the desired value; new keys are appended in desired order; keys
// only present in existing are kept unchanged. Neither input is modified.
func Merge(existing, desired []Tag) []Tag {
	merged := make([]Tag, len(existing), len(existing)+len(desired))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, t := range merged {
		index[t.Key] = i
	}

	for _, t := range desired {
		if i, ok := index[t.Key]; ok {
			merged[i].Value = t.Value
			continue
		}
		index[t.Key] = len(merged)
		merged = append(merged, t)
	}
	return merged
}

// Equal reports whether a and b hold the same key/value pairs, ignoring order.
func Equal(a, b []Tag) bool {
	if len(a) != len(b) {
		return false
	}
	m := make(map[string]string, len(a))
	for _, t := range a {
		m[t.Key] = t.Value
	}
	for _, t := range b {
		v, ok := m[t.Key]
		if !ok || v != t.Value {
			return false
		}
	}
	return true
}
