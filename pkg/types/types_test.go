package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   bool
	}{
		{RunQueued, false},
		{RunRunning, false},
		{RunDone, true},
		{RunCancelled, true},
		{RunError, true},
		{RunStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestChangeType_IsValid(t *testing.T) {
	t.Parallel()

	for _, ct := range []ChangeType{ChangeNew, ChangePrice, ChangeStock, ChangeDescription} {
		assert.True(t, ct.IsValid(), "expected %s to be valid", ct)
	}
	assert.False(t, ChangeType("title").IsValid())
	assert.False(t, ChangeType("").IsValid())
}

func TestRun_CategoryCompletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		done  int
		total int
		want  float64
	}{
		{"no categories", 0, 0, 0},
		{"half done", 2, 4, 0.5},
		{"all done", 4, 4, 1},
		{"overshoot clamps to one", 5, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &Run{CategoriesDone: tt.done, TotalCategories: tt.total}
			assert.InDelta(t, tt.want, r.CategoryCompletion(), 1e-9)
		})
	}
}
