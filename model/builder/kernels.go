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
package builder

import (
	"fmt"
	"math"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/model"
	"github.com/gorse-io/statmodel/representer"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ScalarKernel is a positive definite function of two points.
type ScalarKernel interface {
	Evaluate(x, y representer.Point) float64
	Info() string
}

// MatrixKernel is a positive definite function of two points whose values are
// Dimension()×Dimension() matrices.
type MatrixKernel interface {
	Evaluate(x, y representer.Point) (*mat.Dense, error)
	Dimension() int
	Info() string
}

// GaussianKernel is exp(−|x−y|²/σ²).
type GaussianKernel struct {
	sigma float64
}

func NewGaussianKernel(sigma float64) (*GaussianKernel, error) {
	if sigma <= 0 || math.IsNaN(sigma) {
		return nil, base.InvalidInputf("sigma of gaussian kernel must be positive, got %v", sigma)
	}
	return &GaussianKernel{sigma: sigma}, nil
}

func (k *GaussianKernel) Evaluate(x, y representer.Point) float64 {
	d := floats.Distance(x, y, 2)
	return math.Exp(-d * d / (k.sigma * k.sigma))
}

func (k *GaussianKernel) Info() string {
	return fmt.Sprintf("GaussianKernel(%s)", formatFloat(k.sigma))
}

// UncorrelatedMatrixValuedKernel lifts a scalar kernel to I·k(x, y).
type UncorrelatedMatrixValuedKernel struct {
	kernel    ScalarKernel
	dimension int
}

func NewUncorrelatedMatrixValuedKernel(kernel ScalarKernel, dimension int) (*UncorrelatedMatrixValuedKernel, error) {
	if dimension < 1 {
		return nil, base.InvalidInputf("dimension of kernel must be positive, got %d", dimension)
	}
	return &UncorrelatedMatrixValuedKernel{kernel: kernel, dimension: dimension}, nil
}

func (k *UncorrelatedMatrixValuedKernel) Evaluate(x, y representer.Point) (*mat.Dense, error) {
	value := k.kernel.Evaluate(x, y)
	result := mat.NewDense(k.dimension, k.dimension, nil)
	for i := 0; i < k.dimension; i++ {
		result.Set(i, i, value)
	}
	return result, nil
}

func (k *UncorrelatedMatrixValuedKernel) Dimension() int {
	return k.dimension
}

func (k *UncorrelatedMatrixValuedKernel) Info() string {
	return fmt.Sprintf("UncorrelatedMatrixValuedKernel(%s, %d)", k.kernel.Info(), k.dimension)
}

// StatisticalModelKernel is the covariance function of a statistical model.
type StatisticalModelKernel[D any] struct {
	model *model.StatisticalModel[D]
}

func NewStatisticalModelKernel[D any](m *model.StatisticalModel[D]) *StatisticalModelKernel[D] {
	return &StatisticalModelKernel[D]{model: m}
}

func (k *StatisticalModelKernel[D]) Evaluate(x, y representer.Point) (*mat.Dense, error) {
	return k.model.GetCovarianceAtPoint(x, y)
}

func (k *StatisticalModelKernel[D]) Dimension() int {
	return k.model.GetRepresenter().Dimensions()
}

func (k *StatisticalModelKernel[D]) Info() string {
	return "StatisticalModelKernel"
}

// SumKernel is lhs(x, y) + rhs(x, y).
type SumKernel struct {
	lhs, rhs MatrixKernel
}

func NewSumKernel(lhs, rhs MatrixKernel) (*SumKernel, error) {
	if lhs.Dimension() != rhs.Dimension() {
		return nil, base.InvalidInputf("kernels in sum must have the same dimension, got %d and %d",
			lhs.Dimension(), rhs.Dimension())
	}
	return &SumKernel{lhs: lhs, rhs: rhs}, nil
}

func (k *SumKernel) Evaluate(x, y representer.Point) (*mat.Dense, error) {
	a, err := k.lhs.Evaluate(x, y)
	if err != nil {
		return nil, errors.Trace(err)
	}
	b, err := k.rhs.Evaluate(x, y)
	if err != nil {
		return nil, errors.Trace(err)
	}
	a.Add(a, b)
	return a, nil
}

func (k *SumKernel) Dimension() int {
	return k.lhs.Dimension()
}

func (k *SumKernel) Info() string {
	return k.lhs.Info() + " + " + k.rhs.Info()
}

// ScaledKernel is s·kernel(x, y).
type ScaledKernel struct {
	kernel MatrixKernel
	scale  float64
}

func NewScaledKernel(kernel MatrixKernel, scale float64) (*ScaledKernel, error) {
	if scale < 0 || math.IsNaN(scale) {
		return nil, base.InvalidInputf("scale of kernel must be non-negative, got %v", scale)
	}
	return &ScaledKernel{kernel: kernel, scale: scale}, nil
}

func (k *ScaledKernel) Evaluate(x, y representer.Point) (*mat.Dense, error) {
	value, err := k.kernel.Evaluate(x, y)
	if err != nil {
		return nil, errors.Trace(err)
	}
	value.Scale(k.scale, value)
	return value, nil
}

func (k *ScaledKernel) Dimension() int {
	return k.kernel.Dimension()
}

func (k *ScaledKernel) Info() string {
	return k.kernel.Info() + " * " + formatFloat(k.scale)
}
