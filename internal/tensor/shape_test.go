package tensor

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_Basics(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, 3, s.Rank())
	assert.Equal(t, []int{12, 4, 1}, s.ComputeStrides())
	assert.Equal(t, "(2, 3, 4)", s.String())
	assert.Equal(t, "(3,)", Shape{3}.String())
	assert.Equal(t, "()", Shape{}.String())
	assert.Equal(t, 1, Shape{}.NumElements())

	c := s.Clone()
	c[0] = 9
	assert.Equal(t, 2, s[0])

	assert.Error(t, Shape{2, 0}.Validate())
	assert.NoError(t, Shape{}.Validate())
}

func TestShape_ValidateOverflow(t *testing.T) {
	assert.Error(t, Shape{3, 1 << 62}.Validate())
	assert.Error(t, Shape{1 << 32, 1 << 32}.Validate())
	assert.NoError(t, Shape{1 << 20, 1 << 20}.Validate())
}

func TestShape_NormalizeAxis(t *testing.T) {
	s := Shape{2, 3}
	ax, err := s.NormalizeAxis(-1)
	require.NoError(t, err)
	assert.Equal(t, 1, ax)

	_, err = s.NormalizeAxis(2)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Shape
		want  Shape
		needs bool
	}{
		{"same", Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false},
		{"column", Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true},
		{"vector_one", Shape{3}, Shape{1}, Shape{3}, true},
		{"leading", Shape{4}, Shape{2, 3, 4}, Shape{2, 3, 4}, true},
		{"scalar", Shape{}, Shape{2}, Shape{2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, needs, err := BroadcastShapes(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.needs, needs)
		})
	}
}

func TestBroadcastShapes_Mismatch(t *testing.T) {
	_, _, err := BroadcastShapes(Shape{2, 3}, Shape{3, 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	var sm *ShapeMismatchError
	require.True(t, errors.As(err, &sm))
	assert.Equal(t, Shape{2, 3}, sm.A)
	assert.Equal(t, Shape{3, 2}, sm.B)
	assert.Contains(t, err.Error(), "(2, 3)")
}

func TestBroadcastAxes(t *testing.T) {
	assert.Equal(t, []int{0, 2}, BroadcastAxes(Shape{3, 1}, Shape{2, 3, 4}))
	assert.Equal(t, []int{0}, BroadcastAxes(Shape{1}, Shape{3}))
	assert.Nil(t, BroadcastAxes(Shape{2, 3}, Shape{2, 3}))
	assert.Equal(t, []int{0}, BroadcastAxes(Shape{}, Shape{5}))
}

func TestConcatShapes(t *testing.T) {
	got, err := ConcatShapes(1, Shape{2, 3}, Shape{2, 5})
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 8}, got)

	got, err = ConcatShapes(-1, Shape{4}, Shape{3})
	require.NoError(t, err)
	assert.Equal(t, Shape{7}, got)

	_, err = ConcatShapes(1, Shape{2, 3}, Shape{3, 3})
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = ConcatShapes(0, Shape{2, 3}, Shape{2})
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = ConcatShapes(0)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}
