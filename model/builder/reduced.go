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
	"strconv"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/model"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

// ReducedVarianceModelBuilder truncates a model to its leading components.
type ReducedVarianceModelBuilder[D any] struct {
	params model.Params
}

func NewReducedVarianceModelBuilder[D any](params model.Params) *ReducedVarianceModelBuilder[D] {
	return &ReducedVarianceModelBuilder[D]{params: params.Copy()}
}

// BuildNewModelWithLeadingComponents keeps the first n components of m. Scores are
// truncated alike.
func (b *ReducedVarianceModelBuilder[D]) BuildNewModelWithLeadingComponents(m *model.StatisticalModel[D], n int) (*model.StatisticalModel[D], error) {
	k := m.GetNumberOfPrincipalComponents()
	if n <= 0 || n > k {
		return nil, base.InvalidInputf("number of components must be in [1, %d], got %d", k, n)
	}
	basis := m.GetPCABasisMatrix()
	d, _ := basis.Dims()
	variance := m.GetPCAVarianceVector()
	reduced, err := model.NewStatisticalModelFromScaledBasis(m.GetRepresenter(), m.GetMeanVector(),
		basis.Slice(0, d, 0, n), variance.SliceVec(0, n), m.GetNoiseVariance(), modelOptions(b.params)...)
	if err != nil {
		return nil, errors.Trace(err)
	}

	info := m.GetModelInfo()
	var scores *mat.Dense
	if s := info.GetScoresMatrix(); s != nil {
		rows, cols := s.Dims()
		scores = mat.DenseCopyOf(s.Slice(0, min(rows, n), 0, cols))
	}
	builderInfo := model.NewBuilderInfo("ReducedVarianceModelBuilder", nil, []model.KeyValue{
		{Key: "NumberOfPrincipalComponents", Value: strconv.Itoa(n)},
	})
	return reduced.WithModelInfo(model.NewModelInfo(scores, append(info.GetBuilderInfoList(), builderInfo)...)), nil
}

// BuildNewModelWithVariance keeps the fewest leading components of m that explain
// totalVariance of its variance.
func (b *ReducedVarianceModelBuilder[D]) BuildNewModelWithVariance(m *model.StatisticalModel[D], totalVariance float64) (*model.StatisticalModel[D], error) {
	if totalVariance <= 0 || totalVariance > 1 {
		return nil, base.InvalidInputf("fraction of variance must be in (0, 1], got %v", totalVariance)
	}
	n := numComponentsForVariance(m.GetPCAVarianceVector().RawVector().Data, totalVariance)
	return b.BuildNewModelWithLeadingComponents(m, n)
}
