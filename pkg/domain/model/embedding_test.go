package model_test

import (
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/relayforge/taskmesh/pkg/domain/model"
)

func TestCosineDistance(t *testing.T) {
	t.Run("identical vectors have zero distance", func(t *testing.T) {
		d := model.CosineDistance([]float32{1, 2, 3}, []float32{1, 2, 3})
		gt.Bool(t, math.Abs(d) < 1e-9).True()
	})

	t.Run("orthogonal vectors have distance one", func(t *testing.T) {
		d := model.CosineDistance([]float32{1, 0}, []float32{0, 1})
		gt.Bool(t, math.Abs(d-1) < 1e-9).True()
	})

	t.Run("opposite vectors have distance two", func(t *testing.T) {
		d := model.CosineDistance([]float32{1, 0}, []float32{-1, 0})
		gt.Bool(t, math.Abs(d-2) < 1e-9).True()
	})

	t.Run("mismatched dimensions are maximally distant", func(t *testing.T) {
		gt.Value(t, model.CosineDistance([]float32{1, 0}, []float32{1, 0, 0})).Equal(float64(1))
	})

	t.Run("zero vectors are maximally distant", func(t *testing.T) {
		gt.Value(t, model.CosineDistance([]float32{0, 0}, []float32{1, 0})).Equal(float64(1))
	})
}
