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
	"context"
	"runtime"
	"sync"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/common/parallel"
	"github.com/gorse-io/statmodel/model"
	"github.com/gorse-io/statmodel/representer"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// LowRankGPModelBuilder builds models from a mean and a kernel, keeping the leading
// eigenpairs of the kernel matrix over the domain of the representer.
//
// Hyper-parameters:
//
//	Jobs        - number of workers evaluating the kernel (default: number of CPUs)
//	Tolerance   - smallest eigenvalue kept (default: 1e-5)
//	RandomState - seed of the built model
type LowRankGPModelBuilder[D any] struct {
	representer representer.Representer[D]
	params      model.Params
}

func NewLowRankGPModelBuilder[D any](rep representer.Representer[D], params model.Params) *LowRankGPModelBuilder[D] {
	return &LowRankGPModelBuilder[D]{representer: rep, params: params.Copy()}
}

// BuildNewZeroMeanModel builds a model with a zero mean vector.
func (b *LowRankGPModelBuilder[D]) BuildNewZeroMeanModel(kernel MatrixKernel, numComponents int) (*model.StatisticalModel[D], error) {
	return b.buildNewModel(mat.NewVecDense(representer.SampleVectorLength(b.representer), nil), kernel, numComponents)
}

// BuildNewModel builds a model whose mean is the given sample.
func (b *LowRankGPModelBuilder[D]) BuildNewModel(mean D, kernel MatrixKernel, numComponents int) (*model.StatisticalModel[D], error) {
	mu, err := b.representer.SampleToSampleVector(mean)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return b.buildNewModel(mu, kernel, numComponents)
}

func (b *LowRankGPModelBuilder[D]) buildNewModel(mean mat.Vector, kernel MatrixKernel, numComponents int) (*model.StatisticalModel[D], error) {
	if numComponents < 1 {
		return nil, base.InvalidInputf("number of components must be positive, got %d", numComponents)
	}
	dim := b.representer.Dimensions()
	if kernel.Dimension() != dim {
		return nil, base.InvalidInputf("kernel dimension %d does not match representer dimension %d", kernel.Dimension(), dim)
	}
	domain := b.representer.Domain()
	log.Logger().Info("build low rank GP model",
		zap.Int("n_points", len(domain)), zap.String("kernel", kernel.Info()), zap.Int("n_components", numComponents))

	gram, err := b.kernelMatrix(domain, kernel)
	if err != nil {
		return nil, errors.Trace(err)
	}
	values, vectors, err := eigenDescending(gram)
	if err != nil {
		return nil, errors.Trace(err)
	}
	keep := min(numComponents, countAboveTolerance(values, 0, b.params.GetFloat64(model.Tolerance, Tolerance)))
	if keep == 0 {
		return nil, noComponentsError()
	}
	d, _ := vectors.Dims()
	m, err := model.NewStatisticalModel(b.representer, mean, vectors.Slice(0, d, 0, keep),
		mat.NewVecDense(keep, values[:keep]), 0, modelOptions(b.params)...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	info := model.NewModelInfo(nil, model.NewBuilderInfo("LowRankGPModelBuilder", nil, []model.KeyValue{
		{Key: "NoiseVariance", Value: formatFloat(0)},
		{Key: "KernelInfo", Value: kernel.Info()},
	}))
	log.Logger().Info("complete building low rank GP model", zap.Int("n_components", keep))
	return m.WithModelInfo(info), nil
}

// kernelMatrix evaluates the kernel between every pair of domain points. Worker i fills
// the blocks (i, j) with j ≥ i, so no entry is written twice.
func (b *LowRankGPModelBuilder[D]) kernelMatrix(domain []representer.Point, kernel MatrixKernel) (*mat.SymDense, error) {
	dim := b.representer.Dimensions()
	gram := mat.NewSymDense(representer.SampleVectorLength(b.representer), nil)
	var (
		mu       sync.Mutex
		firstErr error
	)
	err := parallel.For(context.Background(), len(domain), b.params.GetInt(model.Jobs, runtime.NumCPU()), func(i int) {
		for j := i; j < len(domain); j++ {
			block, err := kernel.Evaluate(domain[i], domain[j])
			if err == nil {
				if r, c := block.Dims(); r != dim || c != dim {
					err = base.InvalidInputf("kernel returns a %d×%d matrix, expect %d×%d", r, c, dim, dim)
				}
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			for a := 0; a < dim; a++ {
				for c := 0; c < dim; c++ {
					if i == j && c < a {
						continue
					}
					gram.SetSym(b.representer.MapPointIdToInternalIndex(i, a),
						b.representer.MapPointIdToInternalIndex(j, c), block.At(a, c))
				}
			}
		}
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if firstErr != nil {
		return nil, errors.Trace(firstErr)
	}
	return gram, nil
}
