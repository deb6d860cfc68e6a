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
	"math"
	"testing"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/model"
	"github.com/gorse-io/statmodel/representer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newGaussianKernel(t *testing.T, sigma float64, dim int) *UncorrelatedMatrixValuedKernel {
	gaussian, err := NewGaussianKernel(sigma)
	require.NoError(t, err)
	kernel, err := NewUncorrelatedMatrixValuedKernel(gaussian, dim)
	require.NoError(t, err)
	return kernel
}

func TestGaussianKernel(t *testing.T) {
	kernel, err := NewGaussianKernel(2)
	require.NoError(t, err)
	assert.InDelta(t, 1, kernel.Evaluate(representer.Point{1, 1}, representer.Point{1, 1}), epsilon)
	assert.InDelta(t, math.Exp(-25.0/4), kernel.Evaluate(representer.Point{0, 0}, representer.Point{3, 4}), epsilon)
	assert.Equal(t, "GaussianKernel(2)", kernel.Info())
	_, err = NewGaussianKernel(0)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
}

func TestMatrixKernels(t *testing.T) {
	kernel := newGaussianKernel(t, 1, 2)
	x, y := representer.Point{0, 0}, representer.Point{1, 0}
	value, err := kernel.Evaluate(x, y)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(mat.NewDense(2, 2, []float64{math.Exp(-1), 0, 0, math.Exp(-1)}), value, epsilon))
	assert.Equal(t, "UncorrelatedMatrixValuedKernel(GaussianKernel(1), 2)", kernel.Info())

	sum, err := NewSumKernel(kernel, kernel)
	require.NoError(t, err)
	value, err = sum.Evaluate(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Exp(-1), value.At(0, 0), epsilon)
	assert.Equal(t, 2, sum.Dimension())
	assert.Equal(t, kernel.Info()+" + "+kernel.Info(), sum.Info())

	scaled, err := NewScaledKernel(sum, 3)
	require.NoError(t, err)
	value, err = scaled.Evaluate(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 6*math.Exp(-1), value.At(1, 1), epsilon)
	assert.InDelta(t, 0, value.At(0, 1), epsilon)
	assert.Equal(t, sum.Info()+" * 3", scaled.Info())

	_, err = NewSumKernel(kernel, newGaussianKernel(t, 1, 3))
	assert.ErrorIs(t, err, base.ErrInvalidInput)
	_, err = NewScaledKernel(kernel, -1)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
	_, err = NewUncorrelatedMatrixValuedKernel(kernel.kernel, 0)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
}

func TestLowRankGPModelBuilder_Vector(t *testing.T) {
	rep, err := representer.NewVector(5)
	require.NoError(t, err)
	kernel := newGaussianKernel(t, 1, 1)
	builder := NewLowRankGPModelBuilder[[]float64](rep, model.Params{model.Jobs: 2})

	// all the components reproduce the kernel
	m, err := builder.BuildNewZeroMeanModel(kernel, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, m.GetNumberOfPrincipalComponents())
	assert.Zero(t, m.GetNoiseVariance())
	assert.True(t, mat.Equal(mat.NewVecDense(5, nil), m.GetMeanVector()))
	expected := mat.NewSymDense(5, nil)
	for i := 0; i < 5; i++ {
		for j := i; j < 5; j++ {
			expected.SetSym(i, j, math.Exp(-float64((i-j)*(i-j))))
		}
	}
	assert.True(t, mat.EqualApprox(expected, m.GetCovarianceMatrix(), epsilon))
	builders := m.GetModelInfo().GetBuilderInfoList()
	require.Len(t, builders, 1)
	assert.Equal(t, "LowRankGPModelBuilder", builders[0].BuilderName)
	assert.Equal(t, []model.KeyValue{
		{Key: "NoiseVariance", Value: "0"},
		{Key: "KernelInfo", Value: kernel.Info()},
	}, builders[0].ParameterInfo)
	assert.Nil(t, m.GetModelInfo().GetScoresMatrix())

	// leading components
	var es mat.EigenSym
	require.True(t, es.Factorize(expected, false))
	values := es.Values(nil)
	m, err = builder.BuildNewModel([]float64{1, 2, 3, 4, 5}, kernel, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, m.GetNumberOfPrincipalComponents())
	assert.InDeltaSlice(t, []float64{values[4], values[3]}, m.GetPCAVarianceVector().RawVector().Data, epsilon)
	assert.InDeltaSlice(t, []float64{1, 2, 3, 4, 5}, m.GetMeanVector().RawVector().Data, epsilon)

	// errors
	_, err = builder.BuildNewZeroMeanModel(kernel, 0)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
	_, err = builder.BuildNewZeroMeanModel(newGaussianKernel(t, 1, 2), 2)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
	_, err = builder.BuildNewModel([]float64{1, 2}, kernel, 2)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
}

func TestLowRankGPModelBuilder_PointSet(t *testing.T) {
	rep, err := representer.NewPointSet([][]float64{{0, 0}, {1, 0}, {0, 2}})
	require.NoError(t, err)
	kernel := newGaussianKernel(t, 2, 2)
	m, err := NewLowRankGPModelBuilder[[][]float64](rep, nil).BuildNewModel(rep.Reference(), kernel, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, m.GetNumberOfPrincipalComponents())
	for _, pair := range [][2]representer.Point{
		{{0, 0}, {0, 0}},
		{{0, 0}, {1, 0}},
		{{1, 0}, {0, 2}},
	} {
		expected, err := kernel.Evaluate(pair[0], pair[1])
		require.NoError(t, err)
		actual, err := m.GetCovarianceAtPoint(pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(expected, actual, epsilon))
	}
}

func TestLowRankGPModelBuilder_StatisticalModelKernel(t *testing.T) {
	manager := newTestManager(t, 8, 5, 5)
	prior, err := NewPCAModelBuilder[[]float64](nil).BuildNewModel(manager.GetData(), 0.1, false, MethodJacobiSVD)
	require.NoError(t, err)
	kernel := NewStatisticalModelKernel(prior)
	assert.Equal(t, 1, kernel.Dimension())
	assert.Equal(t, "StatisticalModelKernel", kernel.Info())

	m, err := NewLowRankGPModelBuilder[[]float64](prior.GetRepresenter(), nil).BuildNewZeroMeanModel(kernel, 5)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(prior.GetCovarianceMatrix(), m.GetCovarianceMatrix(), epsilon))
}
