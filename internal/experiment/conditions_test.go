package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/shopbot-experiment/internal/models"
)

func TestConditionFor(t *testing.T) {
	tests := []struct {
		group       string
		adaptivity  models.Level
		calibration models.Level
	}{
		{"A", models.LevelLow, models.LevelLow},
		{"B", models.LevelLow, models.LevelHigh},
		{"C", models.LevelHigh, models.LevelLow},
		{"D", models.LevelHigh, models.LevelHigh},
	}

	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			cond, err := ConditionFor(tt.group)
			require.NoError(t, err)
			assert.Equal(t, tt.adaptivity, cond.Adaptivity)
			assert.Equal(t, tt.calibration, cond.Calibration)
		})
	}
}

func TestConditionFor_Unknown(t *testing.T) {
	_, err := ConditionFor("E")
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestRandomAssigner_CoversAllGroups(t *testing.T) {
	a := NewRandomAssigner(42)
	seen := map[string]int{}
	for i := 0; i < 400; i++ {
		seen[a.Assign()]++
	}
	assert.Len(t, seen, 4)
	for _, g := range Groups() {
		assert.Positive(t, seen[g], "group %s never assigned", g)
	}
}

func TestRandomAssigner_SeedIsDeterministic(t *testing.T) {
	a, b := NewRandomAssigner(7), NewRandomAssigner(7)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Assign(), b.Assign())
	}
}
