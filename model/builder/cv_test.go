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
	"testing"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/dataset"
	"github.com/gorse-io/statmodel/representer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestCrossValidate(t *testing.T) {
	manager := newTestManager(t, 12, 6, 6)
	folds, err := manager.GetCrossValidationFolds(3, true)
	require.NoError(t, err)
	result, err := CrossValidate(folds, NewPCAModelBuilder[[]float64](nil), 0, MethodJacobiSVD, 2)
	require.NoError(t, err)
	require.Len(t, result.Folds, 3)
	reconstruction := make([]float64, 3)
	for i, score := range result.Folds {
		assert.Equal(t, i, score.Fold)
		assert.Equal(t, 12, score.NumTraining+score.NumTesting)
		assert.Positive(t, score.NumComponents)
		assert.GreaterOrEqual(t, score.ReconstructionError, 0.0)
		assert.Positive(t, score.MahalanobisDistance)
		reconstruction[i] = score.ReconstructionError
	}
	assert.InDelta(t, stat.Mean(reconstruction, nil), result.ReconstructionError, epsilon)
}

func TestCrossValidate_LeaveOneOut(t *testing.T) {
	// samples on a plane are reconstructed exactly by a model of the others
	rep, err := representer.NewVector(5)
	require.NoError(t, err)
	manager := dataset.NewDataManager[[]float64](rep)
	rng := base.NewRandomGenerator(7)
	u := mat.NewVecDense(5, rng.NormalVector64(5, 0, 1))
	v := mat.NewVecDense(5, rng.NormalVector64(5, 0, 1))
	for i := 0; i < 6; i++ {
		sample := mat.NewVecDense(5, []float64{1, 2, 3, 4, 5})
		sample.AddScaledVec(sample, rng.NormFloat64(), u)
		sample.AddScaledVec(sample, rng.NormFloat64(), v)
		require.NoError(t, manager.AddDatasetVector(sample, fmt.Sprintf("plane_%d.csv", i)))
	}
	result, err := CrossValidate(manager.GetLeaveOneOutCrossValidationFolds(), NewPCAModelBuilder[[]float64](nil), 0, MethodSelfAdjointEigen, 2)
	require.NoError(t, err)
	require.Len(t, result.Folds, 6)
	for _, score := range result.Folds {
		assert.Equal(t, 2, score.NumComponents)
		assert.Equal(t, 1, score.NumTesting)
		assert.InDelta(t, 0, score.ReconstructionError, epsilon)
	}
}

func TestCrossValidate_Error(t *testing.T) {
	// one training item per fold cannot be decomposed
	folds, err := newTestManager(t, 2, 3, 0).GetCrossValidationFolds(2, false)
	require.NoError(t, err)
	_, err = CrossValidate(folds, NewPCAModelBuilder[[]float64](nil), 0, MethodJacobiSVD, 2)
	assert.ErrorIs(t, err, base.ErrInvalidModel)
}
