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
	"bytes"
	"testing"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/model"
	"github.com/gorse-io/statmodel/representer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestMethod_String(t *testing.T) {
	assert.Equal(t, "JacobiSVD", MethodJacobiSVD.String())
	assert.Equal(t, "SelfAdjointEigen", MethodSelfAdjointEigen.String())
	assert.Equal(t, "Method(7)", Method(7).String())
	method, err := ParseMethod("eigen")
	require.NoError(t, err)
	assert.Equal(t, MethodSelfAdjointEigen, method)
	method, err = ParseMethod("svd")
	require.NoError(t, err)
	assert.Equal(t, MethodJacobiSVD, method)
	_, err = ParseMethod("qr")
	assert.ErrorIs(t, err, base.ErrInvalidInput)
}

func TestPCAModelBuilder_BuildNewModel(t *testing.T) {
	manager := newTestManager(t, 4, 30, 0)
	items := manager.GetData()
	m, err := NewPCAModelBuilder[[]float64](nil).BuildNewModel(items, 0.01, true, MethodJacobiSVD)
	require.NoError(t, err)

	// four samples span at most three directions
	assert.Equal(t, 3, m.GetNumberOfPrincipalComponents())
	assert.InDelta(t, 0.01, m.GetNoiseVariance(), epsilon)
	mean := mat.NewVecDense(30, nil)
	for _, item := range items {
		mean.AddVec(mean, item.RawSampleVector())
	}
	mean.ScaleVec(0.25, mean)
	assert.True(t, mat.EqualApprox(mean, m.GetMeanVector(), epsilon))
	variance := m.GetPCAVarianceVector().RawVector().Data
	assert.True(t, floats.Min(variance) > 0)
	for i := 1; i < len(variance); i++ {
		assert.GreaterOrEqual(t, variance[i-1], variance[i])
	}

	// columns of the orthonormal basis are orthonormal
	basis, err := m.GetOrthonormalPCABasisMatrix()
	require.NoError(t, err)
	var gram mat.Dense
	gram.Mul(basis.T(), basis)
	identity := mat.NewDiagDense(3, []float64{1, 1, 1})
	assert.True(t, mat.EqualApprox(&gram, identity, epsilon))

	// scores and provenance
	scores := m.GetModelInfo().GetScoresMatrix()
	require.NotNil(t, scores)
	rows, cols := scores.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 4, cols)
	builders := m.GetModelInfo().GetBuilderInfoList()
	require.Len(t, builders, 1)
	assert.Equal(t, "PCAModelBuilder", builders[0].BuilderName)
	assert.Equal(t, []model.KeyValue{
		{Key: "URI_0", Value: "sample_0.csv"},
		{Key: "URI_1", Value: "sample_1.csv"},
		{Key: "URI_2", Value: "sample_2.csv"},
		{Key: "URI_3", Value: "sample_3.csv"},
	}, builders[0].DataInfo)
	assert.Contains(t, builders[0].ParameterInfo, model.KeyValue{Key: "NoiseVariance", Value: "0.01"})

	// save and load in both formats
	for _, version := range []model.Version{model.Version08, model.Version09} {
		buf := bytes.NewBuffer(nil)
		require.NoError(t, model.SaveStatisticalModelWithVersion(m, buf, version))
		loaded, err := model.LoadStatisticalModel[[]float64](new(representer.Vector), buf, 0)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(m.GetMeanVector(), loaded.GetMeanVector(), epsilon))
		assert.True(t, mat.EqualApprox(m.GetPCABasisMatrix(), loaded.GetPCABasisMatrix(), epsilon))
		assert.True(t, mat.EqualApprox(m.GetPCAVarianceVector(), loaded.GetPCAVarianceVector(), epsilon))
		assert.InDelta(t, m.GetNoiseVariance(), loaded.GetNoiseVariance(), epsilon)
		assert.True(t, mat.EqualApprox(scores, loaded.GetModelInfo().GetScoresMatrix(), epsilon))
		sample, err := m.DrawSample(mat.NewVecDense(3, []float64{1, -1, 0.5}), false)
		require.NoError(t, err)
		loadedSample, err := loaded.DrawSample(mat.NewVecDense(3, []float64{1, -1, 0.5}), false)
		require.NoError(t, err)
		assert.InDeltaSlice(t, sample, loadedSample, epsilon)
	}
}

func TestPCAModelBuilder_Reconstruction(t *testing.T) {
	manager := newTestManager(t, 4, 30, 1)
	m, err := NewPCAModelBuilder[[]float64](nil).BuildNewModel(manager.GetData(), 0, false, MethodJacobiSVD)
	require.NoError(t, err)
	// without noise every training sample lies in the model span
	for _, item := range manager.GetData() {
		coefficients, err := m.ComputeCoefficientsForSampleVector(item.RawSampleVector())
		require.NoError(t, err)
		reconstructed, err := m.DrawSampleVector(coefficients, false)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(item.RawSampleVector(), reconstructed, epsilon))
	}
	// scores were not requested
	assert.Nil(t, m.GetModelInfo().GetScoresMatrix())
	assert.Len(t, m.GetModelInfo().GetBuilderInfoList(), 1)
}

func TestPCAModelBuilder_Methods(t *testing.T) {
	for _, shape := range []struct{ n, d int }{{4, 30}, {40, 5}} {
		manager := newTestManager(t, shape.n, shape.d, 2)
		builder := NewPCAModelBuilder[[]float64](nil)
		svd, err := builder.BuildNewModel(manager.GetData(), 0.01, false, MethodJacobiSVD)
		require.NoError(t, err)
		eigen, err := builder.BuildNewModel(manager.GetData(), 0.01, false, MethodSelfAdjointEigen)
		require.NoError(t, err)
		assert.Equal(t, svd.GetNumberOfPrincipalComponents(), eigen.GetNumberOfPrincipalComponents())
		assert.True(t, mat.EqualApprox(svd.GetPCAVarianceVector(), eigen.GetPCAVarianceVector(), epsilon))
		// eigenvectors are unique up to sign, the covariance is unique
		assert.True(t, mat.EqualApprox(svd.GetCovarianceMatrix(), eigen.GetCovarianceMatrix(), epsilon))
	}
	_, err := NewPCAModelBuilder[[]float64](nil).BuildNewModel(newTestManager(t, 4, 3, 0).GetData(), 0, false, Method(7))
	assert.ErrorIs(t, err, base.ErrInvalidInput)
}

func TestPCAModelBuilder_NumComponents(t *testing.T) {
	items := newTestManager(t, 10, 8, 3).GetData()
	full, err := NewPCAModelBuilder[[]float64](nil).BuildNewModel(items, 0, false, MethodJacobiSVD)
	require.NoError(t, err)
	assert.Equal(t, 8, full.GetNumberOfPrincipalComponents())

	m, err := NewPCAModelBuilder[[]float64](model.Params{model.NumComponents: 2}).BuildNewModel(items, 0, false, MethodJacobiSVD)
	require.NoError(t, err)
	assert.Equal(t, 2, m.GetNumberOfPrincipalComponents())
	assert.True(t, mat.EqualApprox(full.GetPCAVarianceVector().SliceVec(0, 2), m.GetPCAVarianceVector(), epsilon))

	variance := full.GetPCAVarianceVector().RawVector().Data
	expected := numComponentsForVariance(variance, 0.6)
	m, err = NewPCAModelBuilder[[]float64](model.Params{model.TotalVariance: 0.6}).BuildNewModel(items, 0, false, MethodJacobiSVD)
	require.NoError(t, err)
	assert.Equal(t, expected, m.GetNumberOfPrincipalComponents())
	kept := floats.Sum(m.GetPCAVarianceVector().RawVector().Data)
	assert.GreaterOrEqual(t, kept, 0.6*floats.Sum(variance))
}

func TestNumComponentsForVariance(t *testing.T) {
	variance := []float64{5, 3, 1, 1}
	assert.Equal(t, 1, numComponentsForVariance(variance, 0.5))
	assert.Equal(t, 2, numComponentsForVariance(variance, 0.8))
	assert.Equal(t, 3, numComponentsForVariance(variance, 0.85))
	assert.Equal(t, 4, numComponentsForVariance(variance, 1))
}

func TestPCAModelBuilder_Errors(t *testing.T) {
	builder := NewPCAModelBuilder[[]float64](nil)
	_, err := builder.BuildNewModel(nil, 0, false, MethodJacobiSVD)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
	_, err = builder.BuildNewModel(newTestManager(t, 3, 5, 0).GetData(), -1, false, MethodJacobiSVD)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
	// a single sample has no variance
	_, err = builder.BuildNewModel(newTestManager(t, 1, 5, 0).GetData(), 0, false, MethodJacobiSVD)
	assert.ErrorIs(t, err, base.ErrInvalidModel)
	// identical samples have no variance
	manager := newTestManager(t, 0, 3, 0)
	for i := 0; i < 3; i++ {
		require.NoError(t, manager.AddDatasetVector(mat.NewVecDense(3, []float64{1, 2, 3}), "same.csv"))
	}
	for _, method := range []Method{MethodJacobiSVD, MethodSelfAdjointEigen} {
		_, err = builder.BuildNewModel(manager.GetData(), 0, false, method)
		assert.ErrorIs(t, err, base.ErrInvalidModel)
	}
	// noise above every eigenvalue
	_, err = builder.BuildNewModel(newTestManager(t, 5, 4, 0).GetData(), 1e6, false, MethodJacobiSVD)
	assert.ErrorIs(t, err, base.ErrInvalidModel)
}
