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
	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/common/parallel"
	"github.com/gorse-io/statmodel/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FoldScore evaluates the model built on the training items of a fold.
type FoldScore struct {
	Fold          int
	NumTraining   int
	NumTesting    int
	NumComponents int
	// ReconstructionError is the mean distance between a testing item and its
	// projection onto the model.
	ReconstructionError float64
	// MahalanobisDistance is the mean Mahalanobis distance of the testing items.
	MahalanobisDistance float64
}

// CrossValidationResult holds the score of every fold and their means.
type CrossValidationResult struct {
	Folds               []FoldScore
	ReconstructionError float64
	MahalanobisDistance float64
}

// CrossValidate builds a PCA model on the training items of each fold and scores it on
// the testing items. Folds are evaluated in parallel.
func CrossValidate[D any](folds []dataset.CrossValidationFold[D], builder *PCAModelBuilder[D], noiseVariance float64, method Method, jobs int) (*CrossValidationResult, error) {
	scores := make([]FoldScore, len(folds))
	errs := make([]error, len(folds))
	parallel.ForEach(folds, jobs, func(i int, fold dataset.CrossValidationFold[D]) {
		scores[i], errs[i] = evaluateFold(i, fold, builder, noiseVariance, method)
	})
	for _, err := range errs {
		if err != nil {
			return nil, errors.Trace(err)
		}
	}
	result := &CrossValidationResult{Folds: scores}
	reconstruction := make([]float64, len(scores))
	mahalanobis := make([]float64, len(scores))
	for i, score := range scores {
		reconstruction[i] = score.ReconstructionError
		mahalanobis[i] = score.MahalanobisDistance
	}
	if len(scores) > 0 {
		result.ReconstructionError = stat.Mean(reconstruction, nil)
		result.MahalanobisDistance = stat.Mean(mahalanobis, nil)
	}
	return result, nil
}

func evaluateFold[D any](i int, fold dataset.CrossValidationFold[D], builder *PCAModelBuilder[D], noiseVariance float64, method Method) (FoldScore, error) {
	training, testing := fold.GetTrainingData(), fold.GetTestingData()
	m, err := builder.BuildNewModel(training, noiseVariance, false, method)
	if err != nil {
		return FoldScore{}, errors.Annotatef(err, "fold %d", i)
	}
	score := FoldScore{
		Fold:          i,
		NumTraining:   len(training),
		NumTesting:    len(testing),
		NumComponents: m.GetNumberOfPrincipalComponents(),
	}
	if len(testing) == 0 {
		return score, nil
	}
	reconstruction := make([]float64, len(testing))
	mahalanobis := make([]float64, len(testing))
	for j, item := range testing {
		sample := item.RawSampleVector()
		coefficients, err := m.ComputeCoefficientsForSampleVector(sample)
		if err != nil {
			return FoldScore{}, errors.Annotatef(err, "fold %d", i)
		}
		projected, err := m.DrawSampleVector(coefficients, false)
		if err != nil {
			return FoldScore{}, errors.Annotatef(err, "fold %d", i)
		}
		projected.SubVec(projected, sample)
		reconstruction[j] = mat.Norm(projected, 2)
		mahalanobis[j] = floats.Norm(coefficients.RawVector().Data, 2)
	}
	score.ReconstructionError = stat.Mean(reconstruction, nil)
	score.MahalanobisDistance = stat.Mean(mahalanobis, nil)
	log.Logger().Info("evaluate fold", zap.Int("fold", i),
		zap.Float64("reconstruction_error", score.ReconstructionError),
		zap.Float64("mahalanobis_distance", score.MahalanobisDistance))
	return score, nil
}
