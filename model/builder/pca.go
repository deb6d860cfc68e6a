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

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/dataset"
	"github.com/gorse-io/statmodel/model"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Method selects the decomposition used by PCAModelBuilder.
type Method int

const (
	// MethodJacobiSVD decomposes the n×n inner product matrix when there are fewer
	// samples than variables, and the p×p covariance otherwise.
	MethodJacobiSVD Method = iota
	// MethodSelfAdjointEigen eigen-decomposes the p×p covariance.
	MethodSelfAdjointEigen
)

func (m Method) String() string {
	switch m {
	case MethodJacobiSVD:
		return "JacobiSVD"
	case MethodSelfAdjointEigen:
		return "SelfAdjointEigen"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod parses the short name of a decomposition method: svd or eigen.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "svd":
		return MethodJacobiSVD, nil
	case "eigen":
		return MethodSelfAdjointEigen, nil
	default:
		return 0, base.InvalidInputf("unknown decomposition method %q", name)
	}
}

// PCAModelBuilder builds models by principal component analysis of datasets.
//
// Hyper-parameters:
//
//	NumComponents - keep at most this many components (default: all)
//	TotalVariance - keep the fewest components explaining this fraction of variance (default: 1)
//	Jobs          - number of workers computing scores (default: number of CPUs)
//	Tolerance     - variance a component must exceed beyond the noise (default: 1e-5)
//	RandomState   - seed of the built model
type PCAModelBuilder[D any] struct {
	params model.Params
}

func NewPCAModelBuilder[D any](params model.Params) *PCAModelBuilder[D] {
	return &PCAModelBuilder[D]{params: params.Copy()}
}

// BuildNewModel centers the datasets and keeps the principal components whose variance
// exceeds noiseVariance. If computeScores is set, the coefficients of every dataset are
// stored in the model info.
func (b *PCAModelBuilder[D]) BuildNewModel(items []*dataset.DataItem[D], noiseVariance float64, computeScores bool, method Method) (*model.StatisticalModel[D], error) {
	if err := checkItems(items); err != nil {
		return nil, errors.Trace(err)
	}
	if noiseVariance < 0 {
		return nil, base.InvalidInputf("noise variance must be non-negative, got %v", noiseVariance)
	}
	n, p := len(items), items[0].RawSampleVector().Len()
	log.Logger().Info("build PCA model",
		zap.Int("n_samples", n), zap.Int("n_variables", p), zap.Stringer("method", method))

	// mean and mean free data matrix X0 (n×p)
	mean := mat.NewVecDense(p, nil)
	for _, item := range items {
		mean.AddVec(mean, item.RawSampleVector())
	}
	mean.ScaleVec(1/float64(n), mean)
	x0 := mat.NewDense(n, p, nil)
	for i, item := range items {
		row := x0.RowView(i).(*mat.VecDense)
		row.SubVec(item.RawSampleVector(), mean)
	}

	tolerance := b.params.GetFloat64(model.Tolerance, Tolerance)
	var (
		basis    *mat.Dense
		variance []float64
		err      error
	)
	switch method {
	case MethodJacobiSVD:
		if n < p {
			basis, variance, err = decomposeInnerProduct(x0, noiseVariance, tolerance)
		} else {
			basis, variance, err = decomposeCovariance(x0, noiseVariance, tolerance)
		}
	case MethodSelfAdjointEigen:
		basis, variance, err = decomposeCovarianceEigen(x0, noiseVariance, tolerance)
	default:
		return nil, base.InvalidInputf("unknown decomposition method %v", method)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	keep := b.numComponentsToKeep(variance)
	basis = mat.DenseCopyOf(basis.Slice(0, p, 0, keep))
	variance = variance[:keep]

	m, err := model.NewStatisticalModel(items[0].GetRepresenter(), mean, basis,
		mat.NewVecDense(keep, variance), noiseVariance, modelOptions(b.params)...)
	if err != nil {
		return nil, errors.Trace(err)
	}

	var scores *mat.Dense
	if computeScores {
		if scores, err = projectScores(m, itemVectors(items), b.params.GetInt(model.Jobs, runtime.NumCPU())); err != nil {
			return nil, errors.Trace(err)
		}
	}
	dataInfo := make([]model.KeyValue, n)
	for i, item := range items {
		dataInfo[i] = model.KeyValue{Key: fmt.Sprintf("URI_%d", i), Value: item.GetDatasetURI()}
	}
	info := model.NewModelInfo(scores, model.NewBuilderInfo("PCAModelBuilder", dataInfo, []model.KeyValue{
		{Key: "NoiseVariance", Value: formatFloat(noiseVariance)},
		{Key: "Method", Value: method.String()},
	}))
	log.Logger().Info("complete building PCA model", zap.Int("n_components", keep))
	return m.WithModelInfo(info), nil
}

// numComponentsToKeep applies the NumComponents and TotalVariance limits to variances
// sorted in descending order.
func (b *PCAModelBuilder[D]) numComponentsToKeep(variance []float64) int {
	keep := len(variance)
	if limit := b.params.GetInt(model.NumComponents, 0); limit > 0 && limit < keep {
		keep = limit
	}
	if fraction := b.params.GetFloat64(model.TotalVariance, 1); fraction > 0 && fraction < 1 {
		keep = min(keep, numComponentsForVariance(variance, fraction))
	}
	return keep
}

// numComponentsForVariance returns the fewest leading components whose variance sums to
// at least fraction of the total.
func numComponentsForVariance(variance []float64, fraction float64) int {
	cumulative := floats.CumSum(make([]float64, len(variance)), variance)
	total := cumulative[len(cumulative)-1]
	for i, v := range cumulative {
		if v >= fraction*total {
			return i + 1
		}
	}
	return len(variance)
}

// countAboveTolerance counts leading eigenvalues (descending) that exceed noise + tolerance.
func countAboveTolerance(values []float64, noiseVariance, tolerance float64) int {
	count := 0
	for _, v := range values {
		if v-noiseVariance-tolerance > 0 {
			count++
		}
	}
	return count
}

func noComponentsError() error {
	return base.InvalidModelf("all the eigenvalues are below the given tolerance")
}

// subtractNoise returns values[:k] − noiseVariance.
func subtractNoise(values []float64, k int, noiseVariance float64) []float64 {
	variance := make([]float64, k)
	copy(variance, values[:k])
	floats.AddConst(-noiseVariance, variance)
	return variance
}

// decomposeInnerProduct recovers the eigenvectors of the covariance from the n×n inner
// product matrix X0·X0ᵗ/(n−1). There are at most n−1 non-zero eigenvalues.
func decomposeInnerProduct(x0 *mat.Dense, noiseVariance, tolerance float64) (*mat.Dense, []float64, error) {
	n, _ := x0.Dims()
	if n < 2 {
		return nil, nil, noComponentsError()
	}
	var cov mat.Dense
	cov.Mul(x0, x0.T())
	cov.Scale(1/float64(n-1), &cov)
	var svd mat.SVD
	if !svd.Factorize(&cov, mat.SVDThin) {
		return nil, nil, base.InvalidModelf("singular value decomposition failed")
	}
	values := svd.Values(nil)
	keep := min(countAboveTolerance(values, noiseVariance, tolerance), n-1)
	if keep == 0 {
		return nil, nil, noComponentsError()
	}
	var v mat.Dense
	svd.VTo(&v)
	// U = X0ᵗ·V·diag(1/sqrt(s))/sqrt(n−1)
	scale := make([]float64, keep)
	for i := range scale {
		scale[i] = 1 / math.Sqrt(values[i]) / math.Sqrt(float64(n-1))
	}
	var basis mat.Dense
	basis.Mul(x0.T(), v.Slice(0, n, 0, keep))
	basis.Apply(func(_, j int, value float64) float64 {
		return value * scale[j]
	}, &basis)
	return &basis, subtractNoise(values, keep, noiseVariance), nil
}

// decomposeCovariance decomposes the p×p covariance X0ᵗ·X0/(n−1) by SVD.
func decomposeCovariance(x0 *mat.Dense, noiseVariance, tolerance float64) (*mat.Dense, []float64, error) {
	n, p := x0.Dims()
	if n < 2 {
		return nil, nil, noComponentsError()
	}
	var cov mat.Dense
	cov.Mul(x0.T(), x0)
	var svd mat.SVD
	if !svd.Factorize(&cov, mat.SVDThin) {
		return nil, nil, base.InvalidModelf("singular value decomposition failed")
	}
	values := svd.Values(nil)
	floats.Scale(1/float64(n-1), values)
	keep := countAboveTolerance(values, noiseVariance, tolerance)
	if keep == 0 {
		return nil, nil, noComponentsError()
	}
	var u mat.Dense
	svd.UTo(&u)
	return mat.DenseCopyOf(u.Slice(0, p, 0, keep)), subtractNoise(values, keep, noiseVariance), nil
}

// decomposeCovarianceEigen eigen-decomposes the p×p covariance X0ᵗ·X0/(n−1).
func decomposeCovarianceEigen(x0 *mat.Dense, noiseVariance, tolerance float64) (*mat.Dense, []float64, error) {
	n, p := x0.Dims()
	if n < 2 {
		return nil, nil, noComponentsError()
	}
	cov := mat.NewSymDense(p, nil)
	cov.SymOuterK(1/float64(n-1), x0.T())
	values, vectors, err := eigenDescending(cov)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	keep := countAboveTolerance(values, noiseVariance, tolerance)
	if keep == 0 {
		return nil, nil, noComponentsError()
	}
	return mat.DenseCopyOf(vectors.Slice(0, p, 0, keep)), subtractNoise(values, keep, noiseVariance), nil
}

// eigenDescending eigen-decomposes a symmetric matrix with eigenvalues in descending
// order.
func eigenDescending(a mat.Symmetric) ([]float64, *mat.Dense, error) {
	var es mat.EigenSym
	if !es.Factorize(a, true) {
		return nil, nil, base.InvalidModelf("eigen decomposition failed")
	}
	ascending := es.Values(nil)
	var ev mat.Dense
	es.VectorsTo(&ev)
	n := len(ascending)
	values := make([]float64, n)
	vectors := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		values[i] = ascending[n-1-i]
		vectors.SetCol(i, mat.Col(nil, n-1-i, &ev))
	}
	return values, vectors, nil
}
