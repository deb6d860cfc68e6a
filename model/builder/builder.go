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
// Package builder creates statistical models from data, from other models, and from
// kernels.
package builder

import (
	"context"
	"strconv"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/common/parallel"
	"github.com/gorse-io/statmodel/dataset"
	"github.com/gorse-io/statmodel/model"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

// Tolerance is the smallest variance a kept component must exceed.
const Tolerance = 1e-5

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// modelOptions turns builder parameters into options of the built model.
func modelOptions(params model.Params) []model.Option {
	if _, exist := params[model.RandomState]; exist {
		return []model.Option{model.WithSeed(params.GetInt64(model.RandomState, 0))}
	}
	return nil
}

// checkItems verifies that all items share a representer and a vector length.
func checkItems[D any](items []*dataset.DataItem[D]) error {
	if len(items) == 0 {
		return base.InvalidInputf("no dataset is given")
	}
	rep := items[0].GetRepresenter()
	d := items[0].RawSampleVector().Len()
	for i, item := range items {
		if item.GetRepresenter() != rep {
			return base.InvalidInputf("dataset %d uses a different representer", i)
		}
		if item.RawSampleVector().Len() != d {
			return base.InvalidInputf("dataset %d has %d entries, expect %d", i, item.RawSampleVector().Len(), d)
		}
	}
	return nil
}

// projectScores returns the k×n matrix whose column i holds the coefficients of
// vectors[i] under m.
func projectScores[D any](m *model.StatisticalModel[D], vectors []mat.Vector, jobs int) (*mat.Dense, error) {
	k := m.GetNumberOfPrincipalComponents()
	scores := mat.NewDense(k, len(vectors), nil)
	err := parallel.Parallel(context.Background(), len(vectors), jobs, func(_, i int) error {
		coefficients, err := m.ComputeCoefficientsForSampleVector(vectors[i])
		if err != nil {
			return errors.Trace(err)
		}
		scores.SetCol(i, coefficients.RawVector().Data)
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return scores, nil
}

func itemVectors[D any](items []*dataset.DataItem[D]) []mat.Vector {
	vectors := make([]mat.Vector, len(items))
	for i, item := range items {
		vectors[i] = item.RawSampleVector()
	}
	return vectors
}
