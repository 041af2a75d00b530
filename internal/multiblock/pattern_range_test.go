package multiblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

func TestNewPatternRange(t *testing.T) {
	tests := []struct {
		name    string
		w, h, d int
		wantErr bool
	}{
		{"single cell", 1, 1, 1, false},
		{"slab", 3, 1, 2, false},
		{"zero width", 0, 1, 1, true},
		{"negative height", 2, -1, 1, true},
		{"zero depth", 1, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := NewPatternRange(v(1, 2, 3), tt.w, tt.h, tt.d)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDimensions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w*tt.h*tt.d, rng.Volume())
		})
	}
}

func TestPatternRangeGeometry(t *testing.T) {
	rng := mustRange(t, v(1, 2, 3), 2, 3, 4)

	assert.Equal(t, v(2, 4, 6), rng.End())
	assert.Equal(t, 24, rng.Volume())
	assert.True(t, rng.Contains(v(1, 2, 3)))
	assert.True(t, rng.Contains(v(2, 4, 6)))
	assert.False(t, rng.Contains(v(3, 2, 3)))
	assert.False(t, rng.Contains(v(1, 1, 3)))

	assert.True(t, rng.ContainsRelative(v(1, 2, 3)))
	assert.False(t, rng.ContainsRelative(v(2, 0, 0)))
	assert.False(t, rng.ContainsRelative(v(0, -1, 0)))

	assert.Equal(t, 3, rng.Size(vec.AxisY))
	assert.Equal(t, 5, rng.WithSize(vec.AxisZ, 5).Depth)
}

func TestPatternRangeForEachOrder(t *testing.T) {
	rng := mustRange(t, v(0, 0, 0), 2, 2, 1)

	var got []vec.Vec3
	rng.ForEach(func(p vec.Vec3) bool {
		got = append(got, p)
		return true
	})
	assert.Equal(t, []vec.Vec3{v(0, 0, 0), v(1, 0, 0), v(0, 1, 0), v(1, 1, 0)}, got)
	assert.Equal(t, got, rng.Positions())

	count := 0
	rng.ForEach(func(vec.Vec3) bool {
		count++
		return count < 2
	})
	assert.Equal(t, 2, count)
}

func TestPatternRangeUnionAndIntersects(t *testing.T) {
	a := mustRange(t, v(0, 0, 0), 2, 1, 1)
	b := mustRange(t, v(2, 0, 0), 1, 1, 1)
	c := mustRange(t, v(1, 0, 0), 2, 2, 1)

	assert.False(t, a.Intersects(b))
	assert.True(t, a.Intersects(c))
	assert.Equal(t, mustRange(t, v(0, 0, 0), 3, 1, 1), a.Union(b))
}

func TestBoundingBox(t *testing.T) {
	_, ok := BoundingBox(nil)
	assert.False(t, ok)

	box, ok := BoundingBox([]vec.Vec3{v(2, 0, 1), v(0, 3, 1), v(1, 1, 4)})
	require.True(t, ok)
	assert.Equal(t, mustRange(t, v(0, 0, 1), 3, 4, 4), box)

	assert.Equal(t, SingleCell(v(5, 5, 5)), RangeBetween(v(5, 5, 5), v(5, 5, 5)))
	assert.Equal(t, mustRange(t, v(0, 0, 0), 3, 2, 1), RangeBetween(v(2, 1, 0), v(0, 0, 0)))
}
