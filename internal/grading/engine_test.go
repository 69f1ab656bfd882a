package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name   string
		items  []Item
		want   float64
		wantOK bool
	}{
		{name: "empty", items: nil, wantOK: false},
		{
			name:   "two halves",
			items:  []Item{NewItem(F(50), F(80)), NewItem(F(50), F(60))},
			want:   70,
			wantOK: true,
		},
		{
			name:   "unscored item excluded",
			items:  []Item{NewItem(F(50), F(80)), NewItem(F(50), nil)},
			want:   80,
			wantOK: true,
		},
		{
			name:   "missing weight excluded",
			items:  []Item{NewItem(nil, F(10)), NewItem(F(25), F(90))},
			want:   90,
			wantOK: true,
		},
		{
			name:   "zero score still counts",
			items:  []Item{NewItem(F(50), F(0)), NewItem(F(50), F(100))},
			want:   50,
			wantOK: true,
		},
		{
			name:   "only zero weights",
			items:  []Item{NewItem(F(0), F(70))},
			wantOK: false,
		},
		{
			name:   "rounded to two places",
			items:  []Item{NewItem(F(1), F(70)), NewItem(F(2), F(71))},
			want:   70.67,
			wantOK: true,
		},
		{
			name:   "nan treated as absent",
			items:  []Item{NewItem(F(math.NaN()), F(70)), NewItem(F(10), F(60))},
			want:   60,
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := WeightedAverage(tt.items)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestRequiredAverage(t *testing.T) {
	t.Run("nil target", func(t *testing.T) {
		_, ok := RequiredAverage(nil, []Item{NewItem(F(40), nil)})
		assert.False(t, ok)
	})
	t.Run("no items", func(t *testing.T) {
		_, ok := RequiredAverage(F(70), nil)
		assert.False(t, ok)
	})
	t.Run("nothing remaining", func(t *testing.T) {
		_, ok := RequiredAverage(F(70), []Item{NewItem(F(40), F(60))})
		assert.False(t, ok)
	})
	t.Run("over allocated weight", func(t *testing.T) {
		// an unweighted unscored item adds no remaining weight
		_, ok := RequiredAverage(F(70), []Item{NewItem(F(100), F(60)), NewItem(nil, nil)})
		assert.False(t, ok)
	})
	t.Run("unscaled contribution", func(t *testing.T) {
		got, ok := RequiredAverage(F(80), []Item{NewItem(F(40), F(60)), NewItem(F(60), nil)})
		require.True(t, ok)
		assert.InDelta(t, -3866.67, got, 1e-9)
	})
	t.Run("nothing scored yet", func(t *testing.T) {
		got, ok := RequiredAverage(F(50), []Item{NewItem(F(30), nil), NewItem(F(70), nil)})
		require.True(t, ok)
		assert.InDelta(t, 50, got, 1e-9)
	})
	t.Run("can exceed 100", func(t *testing.T) {
		got, ok := RequiredAverage(F(90), []Item{NewItem(F(0), F(100)), NewItem(F(50), nil)})
		require.True(t, ok)
		assert.InDelta(t, 180, got, 1e-9)
	})
}

func TestTotalScore(t *testing.T) {
	items := []Item{
		NewItem(F(30), F(80)),
		NewItem(F(20), F(50)),
		NewItem(F(50), nil),
		NewItem(nil, F(100)),
	}
	assert.InDelta(t, 34, TotalScore(items), 1e-9)
	assert.Zero(t, TotalScore(nil))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.24, Round2(1.235000001))
	assert.Equal(t, -3866.67, Round2(-3866.6666))
	assert.Equal(t, 0.0, Round2(-0.001))
	assert.False(t, math.Signbit(Round2(-0.001)))
}

func TestPure(t *testing.T) {
	items := []Item{NewItem(F(50), F(80)), NewItem(F(50), nil)}
	a1, ok1 := WeightedAverage(items)
	a2, ok2 := WeightedAverage(items)
	assert.Equal(t, a1, a2)
	assert.Equal(t, ok1, ok2)

	r1, _ := RequiredAverage(F(60), items)
	r2, _ := RequiredAverage(F(60), items)
	assert.Equal(t, r1, r2)
	assert.Equal(t, Grade(72), Grade(72))
}
