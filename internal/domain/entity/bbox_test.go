package entity

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBBox_OrdersCorners(t *testing.T) {
	b := NewBBox(30, 40, 10, 5)
	require.Equal(t, BBox{X1: 10, Y1: 5, X2: 30, Y2: 40}, b)
	require.True(t, b.Valid())
	require.Equal(t, float32(20), b.Width())
	require.Equal(t, float32(35), b.Height())
}

func TestBBoxValid(t *testing.T) {
	require.False(t, BBox{X1: 5, X2: 1}.Valid())
	require.False(t, BBox{X1: float32(math.NaN())}.Valid())
	require.True(t, BBox{}.Valid())
}

func TestBBoxRect_ClipsToBounds(t *testing.T) {
	b := BBox{X1: -5, Y1: 2, X2: 120, Y2: 50}
	r := b.Rect(image.Rect(0, 0, 100, 100))
	require.Equal(t, image.Rect(0, 2, 100, 50), r)
}

func TestBBoxScale(t *testing.T) {
	b := BBox{X1: 1, Y1: 2, X2: 3, Y2: 4}.Scale(2)
	require.Equal(t, BBox{X1: 2, Y1: 4, X2: 6, Y2: 8}, b)
}
