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
	"testing"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestReducedVarianceModelBuilder_BuildNewModelWithLeadingComponents(t *testing.T) {
	prior := newPriorModel(t, 0.01)
	builder := NewReducedVarianceModelBuilder[[]float64](nil)
	reduced, err := builder.BuildNewModelWithLeadingComponents(prior, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, reduced.GetNumberOfPrincipalComponents())
	assert.True(t, mat.EqualApprox(prior.GetMeanVector(), reduced.GetMeanVector(), epsilon))
	assert.True(t, mat.EqualApprox(prior.GetPCAVarianceVector().SliceVec(0, 3), reduced.GetPCAVarianceVector(), epsilon))
	basis := prior.GetPCABasisMatrix()
	d, _ := basis.Dims()
	assert.True(t, mat.EqualApprox(basis.Slice(0, d, 0, 3), reduced.GetPCABasisMatrix(), epsilon))
	assert.InDelta(t, prior.GetNoiseVariance(), reduced.GetNoiseVariance(), epsilon)

	scores := reduced.GetModelInfo().GetScoresMatrix()
	require.NotNil(t, scores)
	rows, cols := scores.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 10, cols)
	priorScores := prior.GetModelInfo().GetScoresMatrix()
	assert.True(t, mat.Equal(priorScores.Slice(0, 3, 0, 10), scores))

	builders := reduced.GetModelInfo().GetBuilderInfoList()
	require.Len(t, builders, 2)
	assert.Equal(t, "ReducedVarianceModelBuilder", builders[1].BuilderName)
	assert.Empty(t, builders[1].DataInfo)
	assert.Equal(t, []model.KeyValue{{Key: "NumberOfPrincipalComponents", Value: "3"}}, builders[1].ParameterInfo)

	// all the components
	k := prior.GetNumberOfPrincipalComponents()
	full, err := builder.BuildNewModelWithLeadingComponents(prior, k)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(prior.GetCovarianceMatrix(), full.GetCovarianceMatrix(), epsilon))

	_, err = builder.BuildNewModelWithLeadingComponents(prior, 0)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
	_, err = builder.BuildNewModelWithLeadingComponents(prior, k+1)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
}

func TestReducedVarianceModelBuilder_BuildNewModelWithVariance(t *testing.T) {
	prior := newPriorModel(t, 0.01)
	builder := NewReducedVarianceModelBuilder[[]float64](nil)
	variance := prior.GetPCAVarianceVector().RawVector().Data
	reduced, err := builder.BuildNewModelWithVariance(prior, 0.7)
	require.NoError(t, err)
	assert.Equal(t, numComponentsForVariance(variance, 0.7), reduced.GetNumberOfPrincipalComponents())

	reduced, err = builder.BuildNewModelWithVariance(prior, 1)
	require.NoError(t, err)
	assert.Equal(t, prior.GetNumberOfPrincipalComponents(), reduced.GetNumberOfPrincipalComponents())

	_, err = builder.BuildNewModelWithVariance(prior, 0)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
	_, err = builder.BuildNewModelWithVariance(prior, 1.5)
	assert.ErrorIs(t, err, base.ErrInvalidInput)
}
