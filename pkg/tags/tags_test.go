package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing []Tag
		desired  []Tag
		want     []Tag
	}{
		{
			name:     "overwrite existing and append new",
			existing: []Tag{{"Owner", "a"}},
			desired:  []Tag{{"Owner", "b"}, {"Env", "prod"}},
			want:     []Tag{{"Owner", "b"}, {"Env", "prod"}},
		},
		{
			name:     "unmanaged tags are preserved",
			existing: []Tag{{"CostCenter", "42"}, {"Owner", "a"}},
			desired:  []Tag{{"Owner", "b"}},
			want:     []Tag{{"CostCenter", "42"}, {"Owner", "b"}},
		},
		{
			name:     "empty existing",
			existing: nil,
			desired:  []Tag{{"Env", "dev"}},
			want:     []Tag{{"Env", "dev"}},
		},
		{
			name:     "nothing desired",
			existing: []Tag{{"Owner", "a"}},
			desired:  nil,
			want:     []Tag{{"Owner", "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.existing, tt.desired))
		})
	}
}

func TestMergeDoesNotModifyInput(t *testing.T) {
	existing := []Tag{{"Owner", "a"}}
	Merge(existing, []Tag{{"Owner", "b"}})
	assert.Equal(t, []Tag{{"Owner", "a"}}, existing)
}

func TestFromMap(t *testing.T) {
	got := FromMap(map[string]string{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, []Tag{{"a", "1"}, {"b", "2"}, {"c", "3"}}, got)
	assert.Empty(t, FromMap(nil))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal([]Tag{{"a", "1"}, {"b", "2"}}, []Tag{{"b", "2"}, {"a", "1"}}))
	assert.False(t, Equal([]Tag{{"a", "1"}}, []Tag{{"a", "2"}}))
	assert.False(t, Equal([]Tag{{"a", "1"}}, nil))
	assert.True(t, Equal(nil, []Tag{}))
}
