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
	"runtime"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/dataset"
	"github.com/gorse-io/statmodel/model"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// PosteriorModelBuilder conditions a model on observed point values. The posterior of a
// model x = μ + W·α given observations sᵢ ~ N(Qᵢ·α + μᵢ, Σᵢ) is again a low-rank Gaussian
// model whose latent covariance is M⁻¹ = (Σᵢ Qᵢᵗ·Σᵢ⁻¹·Qᵢ + I)⁻¹.
//
// Hyper-parameters:
//
//	Jobs        - number of workers computing scores (default: number of CPUs)
//	Tolerance   - smallest posterior variance kept (default: 1e-5)
//	RandomState - seed of the built model
type PosteriorModelBuilder[D any] struct {
	params model.Params
}

func NewPosteriorModelBuilder[D any](params model.Params) *PosteriorModelBuilder[D] {
	return &PosteriorModelBuilder[D]{params: params.Copy()}
}

// TrivialPointValueWithCovarianceListWithUniformNoise attaches the covariance
// noiseVariance·I to every point value.
func TrivialPointValueWithCovarianceListWithUniformNoise(pointValues []model.PointValue, dim int, noiseVariance float64) []model.PointValueWithCovariance {
	list := make([]model.PointValueWithCovariance, len(pointValues))
	for i, pv := range pointValues {
		cov := mat.NewDiagDense(dim, nil)
		for j := 0; j < dim; j++ {
			cov.SetDiag(j, noiseVariance)
		}
		list[i] = model.PointValueWithCovariance{PointValue: pv, Covariance: cov}
	}
	return list
}

// BuildNewModel builds a PCA model from the datasets and conditions it.
func (b *PosteriorModelBuilder[D]) BuildNewModel(items []*dataset.DataItem[D], pointValues []model.PointValueWithCovariance, noiseVariance float64) (*model.StatisticalModel[D], error) {
	prior, err := NewPCAModelBuilder[D](b.params).BuildNewModel(items, noiseVariance, true, MethodJacobiSVD)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return b.BuildNewModelFromModel(prior, pointValues, true)
}

// BuildNewModelWithUniformNoise builds a PCA model from the datasets and conditions it
// on point values that share the noise pointNoiseVariance.
func (b *PosteriorModelBuilder[D]) BuildNewModelWithUniformNoise(items []*dataset.DataItem[D], pointValues []model.PointValue, pointNoiseVariance, noiseVariance float64) (*model.StatisticalModel[D], error) {
	if err := checkItems(items); err != nil {
		return nil, errors.Trace(err)
	}
	dim := items[0].GetRepresenter().Dimensions()
	return b.BuildNewModel(items, TrivialPointValueWithCovarianceListWithUniformNoise(pointValues, dim, pointNoiseVariance), noiseVariance)
}

// BuildNewModelFromModelWithUniformNoise conditions prior on point values that share the
// noise pointNoiseVariance.
func (b *PosteriorModelBuilder[D]) BuildNewModelFromModelWithUniformNoise(prior *model.StatisticalModel[D], pointValues []model.PointValue, pointNoiseVariance float64, computeScores bool) (*model.StatisticalModel[D], error) {
	dim := prior.GetRepresenter().Dimensions()
	return b.BuildNewModelFromModel(prior, TrivialPointValueWithCovarianceListWithUniformNoise(pointValues, dim, pointNoiseVariance), computeScores)
}

// BuildNewModelFromModel conditions prior on point values with individual covariances.
// The prior is not modified. Without point values the result is a copy of the prior.
func (b *PosteriorModelBuilder[D]) BuildNewModelFromModel(prior *model.StatisticalModel[D], pointValues []model.PointValueWithCovariance, computeScores bool) (*model.StatisticalModel[D], error) {
	rep := prior.GetRepresenter()
	// a model without noise is treated as having a little
	rho2 := math.Max(prior.GetNoiseVariance(), Tolerance)
	priorInfo := prior.GetModelInfo()

	dataInfo := make([]model.KeyValue, 0, len(pointValues))
	constrained := bitset.New(uint(rep.NumberOfPoints()))
	for i, pv := range pointValues {
		ptId, err := rep.PointIdForPoint(pv.Point)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if constrained.Test(uint(ptId)) {
			log.Logger().Warn("point is constrained more than once", zap.Int("point_id", ptId))
		}
		constrained.Set(uint(ptId))
		dataInfo = append(dataInfo, model.KeyValue{
			Key:   fmt.Sprintf("Point constraint %d", i),
			Value: formatConstraint(ptId, pv.Value),
		})
	}
	builderInfo := model.NewBuilderInfo("PosteriorModelBuilder", dataInfo, []model.KeyValue{
		{Key: "NoiseVariance", Value: formatFloat(rho2)},
	})
	if len(pointValues) == 0 {
		return prior.WithModelInfo(priorInfo.Append(builderInfo)), nil
	}
	log.Logger().Info("build posterior model",
		zap.Int("n_constraints", len(pointValues)),
		zap.Uint("n_points", constrained.Count()),
		zap.Int("n_components", prior.GetNumberOfPrincipalComponents()))

	system, err := prior.BuildConstraintSystem(pointValues)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// MAP solution in sample space
	mean, err := prior.DrawSampleVector(system.Coefficients, false)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// The posterior covariance W·M⁻¹·Wᵗ = U·(D·M⁻¹·D)·Uᵗ with W = U·D. Diagonalizing the
	// inner k×k matrix yields the new orthonormal basis and variances.
	variance := prior.GetPCAVarianceVector()
	k := variance.Len()
	sd := make([]float64, k)
	for i := range sd {
		sd[i] = math.Sqrt(math.Max(variance.AtVec(i), 0))
	}
	inner := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			// average the two triangles against round-off asymmetry
			v := 0.5 * (system.MInverse.At(i, j) + system.MInverse.At(j, i))
			inner.SetSym(i, j, sd[i]*v*sd[j])
		}
	}
	values, vectors, err := eigenDescending(inner)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// directions pinned down by the constraints are dropped
	keep := countAboveTolerance(values, 0, b.params.GetFloat64(model.Tolerance, Tolerance))
	if keep == 0 {
		return nil, noComponentsError()
	}
	if keep < k {
		log.Logger().Info("drop posterior components", zap.Int("n_dropped", k-keep))
	}
	orthonormal, err := prior.GetOrthonormalPCABasisMatrix()
	if err != nil {
		return nil, errors.Trace(err)
	}
	var basis mat.Dense
	basis.Mul(orthonormal, vectors.Slice(0, k, 0, keep))
	posterior, err := model.NewStatisticalModel(rep, mean, &basis, mat.NewVecDense(keep, values[:keep]), rho2, modelOptions(b.params)...)
	if err != nil {
		return nil, errors.Trace(err)
	}

	var scores *mat.Dense
	if priorScores := priorInfo.GetScoresMatrix(); computeScores && priorScores != nil {
		// reconstruct every training sample from the prior and project it into the posterior
		_, n := priorScores.Dims()
		samples := make([]mat.Vector, n)
		for i := range samples {
			if samples[i], err = prior.DrawSampleVector(priorScores.ColView(i), false); err != nil {
				return nil, errors.Trace(err)
			}
		}
		if scores, err = projectScores(posterior, samples, b.params.GetInt(model.Jobs, runtime.NumCPU())); err != nil {
			return nil, errors.Trace(err)
		}
	}
	info := model.NewModelInfo(scores, append(priorInfo.GetBuilderInfoList(), builderInfo)...)
	return posterior.WithModelInfo(info), nil
}

func formatConstraint(ptId int, value []float64) string {
	parts := make([]string, len(value))
	for i, v := range value {
		parts[i] = formatFloat(v)
	}
	return fmt.Sprintf("(%d, (%s))", ptId, strings.Join(parts, ","))
}
