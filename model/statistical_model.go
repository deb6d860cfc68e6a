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
	"sync"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/representer"
	"github.com/juju/errors"
	"github.com/viterin/vek"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// minVariance is the smallest variance for which the orthonormal basis can be recovered.
const minVariance = 1e-8

// StatisticalModel is a generative linear Gaussian model
//
//	x = mean + W·α + ε,  α ~ N(0, I_k),  ε ~ N(0, σ²·I_d)
//
// where the columns of W are orthonormal principal directions scaled by the square root
// of their variance. A model never changes after construction.
type StatisticalModel[D any] struct {
	representer   representer.Representer[D]
	mean          *mat.VecDense
	pcaBasis      *mat.Dense
	pcaVariance   *mat.VecDense
	noiseVariance float64
	modelInfo     ModelInfo

	seed int64
	rng  base.RandomGenerator
	// mInverse computes (WᵗW + σ²I)⁻¹ on first use and returns the same result afterwards.
	mInverse func() (*mat.Dense, error)
}

// NewStatisticalModel creates a model from an orthonormal basis (d×k) and the variance of
// each principal direction.
func NewStatisticalModel[D any](rep representer.Representer[D], mean mat.Vector, orthonormalBasis mat.Matrix,
	variance mat.Vector, noiseVariance float64, opts ...Option) (*StatisticalModel[D], error) {
	if err := checkModel(rep, mean, orthonormalBasis, variance, noiseVariance); err != nil {
		return nil, err
	}
	sd := make([]float64, variance.Len())
	for i := range sd {
		sd[i] = math.Sqrt(variance.AtVec(i))
	}
	scaled := scaleColumns(orthonormalBasis, func(j int) float64 { return sd[j] })
	return newStatisticalModel(rep, mean, scaled, variance, noiseVariance, opts...), nil
}

// NewStatisticalModelFromScaledBasis creates a model from a basis whose columns are
// already scaled by the standard deviation of their direction.
func NewStatisticalModelFromScaledBasis[D any](rep representer.Representer[D], mean mat.Vector, scaledBasis mat.Matrix,
	variance mat.Vector, noiseVariance float64, opts ...Option) (*StatisticalModel[D], error) {
	if err := checkModel(rep, mean, scaledBasis, variance, noiseVariance); err != nil {
		return nil, err
	}
	return newStatisticalModel(rep, mean, mat.DenseCopyOf(scaledBasis), variance, noiseVariance, opts...), nil
}

func checkModel[D any](rep representer.Representer[D], mean mat.Vector, basis mat.Matrix, variance mat.Vector, noiseVariance float64) error {
	if rep == nil {
		return base.InvalidModelf("representer is missing")
	}
	if mean == nil || basis == nil || variance == nil {
		return base.InvalidModelf("mean, basis and variance are required")
	}
	d, k := basis.Dims()
	if k == 0 || d == 0 {
		return base.InvalidModelf("model has no principal components")
	}
	if mean.Len() != d {
		return base.InvalidModelf("mean has %d entries but basis has %d rows", mean.Len(), d)
	}
	if variance.Len() != k {
		return base.InvalidModelf("variance has %d entries but basis has %d columns", variance.Len(), k)
	}
	if expect := representer.SampleVectorLength(rep); expect != d {
		return base.InvalidModelf("representer expects sample vectors of length %d, model has %d", expect, d)
	}
	for i := 0; i < k; i++ {
		if v := variance.AtVec(i); v < 0 || math.IsNaN(v) {
			return base.InvalidModelf("variance %d is %v", i, v)
		}
	}
	if noiseVariance < 0 || math.IsNaN(noiseVariance) {
		return base.InvalidModelf("noise variance is %v", noiseVariance)
	}
	return nil
}

func newStatisticalModel[D any](rep representer.Representer[D], mean mat.Vector, scaledBasis *mat.Dense,
	variance mat.Vector, noiseVariance float64, opts ...Option) *StatisticalModel[D] {
	options := NewOptions(opts...)
	m := &StatisticalModel[D]{
		representer:   rep,
		mean:          mat.VecDenseCopyOf(mean),
		pcaBasis:      scaledBasis,
		pcaVariance:   mat.VecDenseCopyOf(variance),
		noiseVariance: noiseVariance,
		modelInfo:     options.Info.clone(),
		seed:          options.Seed,
		rng:           base.NewRandomGenerator(options.Seed),
	}
	m.mInverse = sync.OnceValues(m.computeMInverse)
	return m
}

func (m *StatisticalModel[D]) computeMInverse() (*mat.Dense, error) {
	var matM mat.Dense
	matM.Mul(m.pcaBasis.T(), m.pcaBasis)
	addDiagonal(&matM, m.noiseVariance)
	inv, err := Inverse(&matM)
	if err != nil {
		return nil, errors.Annotate(err, "failed to invert WᵗW + σ²I")
	}
	return inv, nil
}

// Clone returns a deep copy sharing only the representer.
func (m *StatisticalModel[D]) Clone() *StatisticalModel[D] {
	return m.WithModelInfo(m.modelInfo)
}

// WithModelInfo returns a copy of the model carrying info.
func (m *StatisticalModel[D]) WithModelInfo(info ModelInfo) *StatisticalModel[D] {
	return newStatisticalModel(m.representer, m.mean, mat.DenseCopyOf(m.pcaBasis), m.pcaVariance,
		m.noiseVariance, WithSeed(m.seed), WithInfo(info))
}

func (m *StatisticalModel[D]) checkCoefficients(coefficients mat.Vector) error {
	if coefficients == nil {
		return base.InvalidInputf("coefficients are missing")
	}
	if k := m.GetNumberOfPrincipalComponents(); coefficients.Len() != k {
		return base.InvalidInputf("expect %d coefficients, got %d", k, coefficients.Len())
	}
	return nil
}

// internalIndex maps a point component to its sample vector index.
func (m *StatisticalModel[D]) internalIndex(ptId, component int) (int, error) {
	if ptId < 0 || ptId >= m.representer.NumberOfPoints() {
		return 0, base.InvalidInputf("point id %d out of range [0, %d)", ptId, m.representer.NumberOfPoints())
	}
	idx := m.representer.MapPointIdToInternalIndex(ptId, component)
	if idx < 0 || idx >= m.mean.Len() {
		return 0, base.InvalidInputf("point id %d maps to invalid index %d", ptId, idx)
	}
	return idx, nil
}

/* Sampling */

// DrawSampleVector returns mean + W·coefficients, plus noise drawn from N(0, σ²I) if
// addNoise is set.
func (m *StatisticalModel[D]) DrawSampleVector(coefficients mat.Vector, addNoise bool) (*mat.VecDense, error) {
	if err := m.checkCoefficients(coefficients); err != nil {
		return nil, err
	}
	sample := mat.NewVecDense(m.mean.Len(), nil)
	sample.MulVec(m.pcaBasis, coefficients)
	sample.AddVec(sample, m.mean)
	if addNoise && m.noiseVariance > 0 {
		epsilon := m.rng.StandardNormalVec(m.mean.Len())
		sample.AddScaledVec(sample, math.Sqrt(m.noiseVariance), epsilon)
	}
	return sample, nil
}

func (m *StatisticalModel[D]) DrawSample(coefficients mat.Vector, addNoise bool) (D, error) {
	var zero D
	sample, err := m.DrawSampleVector(coefficients, addNoise)
	if err != nil {
		return zero, err
	}
	return m.representer.SampleVectorToSample(sample)
}

// DrawRandomSampleVector draws the coefficients from N(0, I_k).
func (m *StatisticalModel[D]) DrawRandomSampleVector(addNoise bool) (*mat.VecDense, error) {
	coefficients := m.rng.StandardNormalVec(m.GetNumberOfPrincipalComponents())
	log.Logger().Debug("draw random sample", zap.Bool("add_noise", addNoise))
	return m.DrawSampleVector(coefficients, addNoise)
}

func (m *StatisticalModel[D]) DrawRandomSample(addNoise bool) (D, error) {
	var zero D
	sample, err := m.DrawRandomSampleVector(addNoise)
	if err != nil {
		return zero, err
	}
	return m.representer.SampleVectorToSample(sample)
}

func (m *StatisticalModel[D]) zeroCoefficients() *mat.VecDense {
	return mat.NewVecDense(m.GetNumberOfPrincipalComponents(), nil)
}

// DrawMeanVector returns a copy of the mean.
func (m *StatisticalModel[D]) DrawMeanVector() *mat.VecDense {
	return mat.VecDenseCopyOf(m.mean)
}

func (m *StatisticalModel[D]) DrawMean() (D, error) {
	return m.representer.SampleVectorToSample(m.mean)
}

func (m *StatisticalModel[D]) DrawMeanAtPoint(pt representer.Point) ([]float64, error) {
	return m.DrawSampleAtPoint(m.zeroCoefficients(), pt, false)
}

func (m *StatisticalModel[D]) DrawMeanAtPointId(ptId int) ([]float64, error) {
	return m.DrawSampleAtPointId(m.zeroCoefficients(), ptId, false)
}

func (m *StatisticalModel[D]) DrawSampleAtPoint(coefficients mat.Vector, pt representer.Point, addNoise bool) ([]float64, error) {
	ptId, err := m.representer.PointIdForPoint(pt)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m.DrawSampleAtPointId(coefficients, ptId, addNoise)
}

// DrawSampleAtPointId evaluates the sample for coefficients at a single point. Only the
// basis rows of that point are touched.
func (m *StatisticalModel[D]) DrawSampleAtPointId(coefficients mat.Vector, ptId int, addNoise bool) ([]float64, error) {
	if err := m.checkCoefficients(coefficients); err != nil {
		return nil, err
	}
	alpha := vectorData(coefficients)
	value := make([]float64, m.representer.Dimensions())
	for c := range value {
		idx, err := m.internalIndex(ptId, c)
		if err != nil {
			return nil, err
		}
		value[c] = m.mean.AtVec(idx) + vek.Dot(m.pcaBasis.RawRowView(idx), alpha)
		if addNoise && m.noiseVariance > 0 {
			value[c] += m.rng.NormFloat64() * math.Sqrt(m.noiseVariance)
		}
	}
	return value, nil
}

// DrawPCABasisSample returns the i-th scaled principal direction as a dataset.
func (m *StatisticalModel[D]) DrawPCABasisSample(i int) (D, error) {
	var zero D
	if k := m.GetNumberOfPrincipalComponents(); i < 0 || i >= k {
		return zero, base.InvalidInputf("component %d out of range [0, %d)", i, k)
	}
	return m.representer.SampleVectorToSample(m.pcaBasis.ColView(i))
}

// EvaluateSampleAtPoint reads the value of sample at a domain point.
func (m *StatisticalModel[D]) EvaluateSampleAtPoint(sample D, pt representer.Point) ([]float64, error) {
	ptId, err := m.representer.PointIdForPoint(pt)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m.representer.PointSampleFromSample(sample, ptId)
}

/* Inference */

// ComputeCoefficientsForSampleVector returns α = (WᵗW + σ²I)⁻¹·Wᵗ·(x − mean).
func (m *StatisticalModel[D]) ComputeCoefficientsForSampleVector(sample mat.Vector) (*mat.VecDense, error) {
	if sample == nil || sample.Len() != m.mean.Len() {
		return nil, base.InvalidInputf("expect sample vector of length %d", m.mean.Len())
	}
	mInverse, err := m.mInverse()
	if err != nil {
		return nil, errors.Trace(err)
	}
	centered := mat.NewVecDense(m.mean.Len(), nil)
	centered.SubVec(sample, m.mean)
	projected := mat.NewVecDense(m.GetNumberOfPrincipalComponents(), nil)
	projected.MulVec(m.pcaBasis.T(), centered)
	coefficients := mat.NewVecDense(m.GetNumberOfPrincipalComponents(), nil)
	coefficients.MulVec(mInverse, projected)
	return coefficients, nil
}

func (m *StatisticalModel[D]) ComputeCoefficients(sample D) (*mat.VecDense, error) {
	vec, err := m.representer.SampleToSampleVector(sample)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m.ComputeCoefficientsForSampleVector(vec)
}

func (m *StatisticalModel[D]) ComputeCoefficientsForPointValues(pointValues []PointValue, pointNoiseVariance float64) (*mat.VecDense, error) {
	pointIdValues := make([]PointIdValue, len(pointValues))
	for i, pv := range pointValues {
		ptId, err := m.representer.PointIdForPoint(pv.Point)
		if err != nil {
			return nil, errors.Trace(err)
		}
		pointIdValues[i] = PointIdValue{PointId: ptId, Value: pv.Value}
	}
	return m.ComputeCoefficientsForPointIdValues(pointIdValues, pointNoiseVariance)
}

// ComputeCoefficientsForPointIdValues infers coefficients from observations at a subset of
// points. The observations are assumed to carry noise max(pointNoiseVariance, σ²).
func (m *StatisticalModel[D]) ComputeCoefficientsForPointIdValues(pointIdValues []PointIdValue, pointNoiseVariance float64) (*mat.VecDense, error) {
	k := m.GetNumberOfPrincipalComponents()
	if len(pointIdValues) == 0 {
		return m.zeroCoefficients(), nil
	}
	dim := m.representer.Dimensions()
	noiseVariance := max(pointNoiseVariance, m.noiseVariance)
	rows := len(pointIdValues) * dim
	basisPart := mat.NewDense(rows, k, nil)
	residual := mat.NewVecDense(rows, nil)
	for i, pv := range pointIdValues {
		if len(pv.Value) != dim {
			return nil, base.InvalidInputf("value at point %d has %d components, expect %d", pv.PointId, len(pv.Value), dim)
		}
		for c := 0; c < dim; c++ {
			idx, err := m.internalIndex(pv.PointId, c)
			if err != nil {
				return nil, err
			}
			basisPart.SetRow(i*dim+c, m.pcaBasis.RawRowView(idx))
			residual.SetVec(i*dim+c, pv.Value[c]-m.mean.AtVec(idx))
		}
	}
	var matM mat.Dense
	matM.Mul(basisPart.T(), basisPart)
	addDiagonal(&matM, noiseVariance)
	mInverse, err := Inverse(&matM)
	if err != nil {
		return nil, errors.Trace(err)
	}
	projected := mat.NewVecDense(k, nil)
	projected.MulVec(basisPart.T(), residual)
	coefficients := mat.NewVecDense(k, nil)
	coefficients.MulVec(mInverse, projected)
	return coefficients, nil
}

// ComputeCoefficientsForPointValuesWithCovariance returns the MAP coefficients given
// observations with individual covariances.
func (m *StatisticalModel[D]) ComputeCoefficientsForPointValuesWithCovariance(pointValues []PointValueWithCovariance) (*mat.VecDense, error) {
	if len(pointValues) == 0 {
		return m.zeroCoefficients(), nil
	}
	system, err := m.BuildConstraintSystem(pointValues)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return system.Coefficients, nil
}

/* Queries */

// GetCovarianceAtPointId returns the dim×dim block of W·Wᵗ + σ²I between two points.
func (m *StatisticalModel[D]) GetCovarianceAtPointId(ptId1, ptId2 int) (*mat.Dense, error) {
	dim := m.representer.Dimensions()
	cov := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		idxi, err := m.internalIndex(ptId1, i)
		if err != nil {
			return nil, err
		}
		for j := 0; j < dim; j++ {
			idxj, err := m.internalIndex(ptId2, j)
			if err != nil {
				return nil, err
			}
			v := vek.Dot(m.pcaBasis.RawRowView(idxi), m.pcaBasis.RawRowView(idxj))
			if idxi == idxj {
				v += m.noiseVariance
			}
			cov.Set(i, j, v)
		}
	}
	return cov, nil
}

func (m *StatisticalModel[D]) GetCovarianceAtPoint(pt1, pt2 representer.Point) (*mat.Dense, error) {
	ptId1, err := m.representer.PointIdForPoint(pt1)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ptId2, err := m.representer.PointIdForPoint(pt2)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m.GetCovarianceAtPointId(ptId1, ptId2)
}

// GetCovarianceMatrix materializes the full d×d covariance W·Wᵗ + σ²I.
func (m *StatisticalModel[D]) GetCovarianceMatrix() *mat.SymDense {
	d := m.mean.Len()
	cov := mat.NewSymDense(d, nil)
	cov.SymOuterK(1, m.pcaBasis)
	for i := 0; i < d; i++ {
		cov.SetSym(i, i, cov.At(i, i)+m.noiseVariance)
	}
	return cov
}

// ComputeLogProbabilityOfCoefficients returns the log density of α under N(0, I_k).
func (m *StatisticalModel[D]) ComputeLogProbabilityOfCoefficients(coefficients mat.Vector) (float64, error) {
	if err := m.checkCoefficients(coefficients); err != nil {
		return 0, err
	}
	k := float64(m.GetNumberOfPrincipalComponents())
	alpha := vectorData(coefficients)
	return -0.5*k*math.Log(2*math.Pi) - 0.5*floats.Dot(alpha, alpha), nil
}

func (m *StatisticalModel[D]) ComputeProbabilityOfCoefficients(coefficients mat.Vector) (float64, error) {
	logProb, err := m.ComputeLogProbabilityOfCoefficients(coefficients)
	if err != nil {
		return 0, err
	}
	return math.Exp(logProb), nil
}

func (m *StatisticalModel[D]) ComputeLogProbability(sample D) (float64, error) {
	coefficients, err := m.ComputeCoefficients(sample)
	if err != nil {
		return 0, err
	}
	return m.ComputeLogProbabilityOfCoefficients(coefficients)
}

func (m *StatisticalModel[D]) ComputeProbability(sample D) (float64, error) {
	coefficients, err := m.ComputeCoefficients(sample)
	if err != nil {
		return 0, err
	}
	return m.ComputeProbabilityOfCoefficients(coefficients)
}

// ComputeMahalanobisDistance returns the norm of the coefficients of sample.
func (m *StatisticalModel[D]) ComputeMahalanobisDistance(sample D) (float64, error) {
	coefficients, err := m.ComputeCoefficients(sample)
	if err != nil {
		return 0, err
	}
	return mat.Norm(coefficients, 2), nil
}

// GetJacobianAtPointId returns the dim×k rows of W belonging to a point.
func (m *StatisticalModel[D]) GetJacobianAtPointId(ptId int) (*mat.Dense, error) {
	dim := m.representer.Dimensions()
	jacobian := mat.NewDense(dim, m.GetNumberOfPrincipalComponents(), nil)
	for c := 0; c < dim; c++ {
		idx, err := m.internalIndex(ptId, c)
		if err != nil {
			return nil, err
		}
		jacobian.SetRow(c, m.pcaBasis.RawRowView(idx))
	}
	return jacobian, nil
}

func (m *StatisticalModel[D]) GetJacobian(pt representer.Point) (*mat.Dense, error) {
	ptId, err := m.representer.PointIdForPoint(pt)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m.GetJacobianAtPointId(ptId)
}

/* Accessors */

func (m *StatisticalModel[D]) GetRepresenter() representer.Representer[D] {
	return m.representer
}

func (m *StatisticalModel[D]) GetMeanVector() *mat.VecDense {
	return mat.VecDenseCopyOf(m.mean)
}

func (m *StatisticalModel[D]) GetPCAVarianceVector() *mat.VecDense {
	return mat.VecDenseCopyOf(m.pcaVariance)
}

func (m *StatisticalModel[D]) GetNoiseVariance() float64 {
	return m.noiseVariance
}

// GetPCABasisMatrix returns a copy of the scaled basis W.
func (m *StatisticalModel[D]) GetPCABasisMatrix() *mat.Dense {
	return mat.DenseCopyOf(m.pcaBasis)
}

// GetOrthonormalPCABasisMatrix undoes the scaling of W. It fails on models whose
// variances are all numerically zero. Columns with zero variance come back as zeros.
func (m *StatisticalModel[D]) GetOrthonormalPCABasisMatrix() (*mat.Dense, error) {
	if mat.Max(m.pcaVariance) <= minVariance {
		return nil, base.InvalidModelf("variance is too small to recover the orthonormal basis")
	}
	sd := make([]float64, m.pcaVariance.Len())
	for i := range sd {
		sd[i] = math.Sqrt(m.pcaVariance.AtVec(i))
	}
	return scaleColumns(m.pcaBasis, func(j int) float64 {
		if m.pcaVariance.AtVec(j) <= minVariance {
			return 0
		}
		return 1 / sd[j]
	}), nil
}

func (m *StatisticalModel[D]) GetNumberOfPrincipalComponents() int {
	_, k := m.pcaBasis.Dims()
	return k
}

func (m *StatisticalModel[D]) GetModelInfo() ModelInfo {
	return m.modelInfo.clone()
}
