// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package model

import (
	"math"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/base/log"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Inverse inverts a square matrix. A singular matrix yields ErrSingularCovariance. An
// ill-conditioned but invertible matrix is inverted with a warning.
func Inverse(a mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	err := inv.Inverse(a)
	if err != nil {
		cond, ok := err.(mat.Condition)
		if !ok || math.IsInf(float64(cond), 1) || math.IsNaN(float64(cond)) {
			return nil, base.SingularCovariancef("matrix is not invertible: %v", err)
		}
		log.Logger().Warn("ill-conditioned inversion", zap.Float64("condition", float64(cond)))
	}
	return &inv, nil
}

// vectorData copies the entries of v into a slice.
func vectorData(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}

// addDiagonal adds value to every diagonal entry of the square matrix m.
func addDiagonal(m *mat.Dense, value float64) {
	n, _ := m.Dims()
	for i := 0; i < n; i++ {
		m.Set(i, i, m.At(i, i)+value)
	}
}

// scaleColumns returns a copy of m whose column j is multiplied by scale(j).
func scaleColumns(m mat.Matrix, scale func(j int) float64) *mat.Dense {
	r, c := m.Dims()
	scaled := mat.NewDense(r, c, nil)
	scaled.Apply(func(_, j int, v float64) float64 {
		return v * scale(j)
	}, m)
	return scaled
}
