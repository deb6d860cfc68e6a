// Copyright 2020 gorse Project Authors
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
package dataset

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/common/parallel"
	"github.com/samber/lo"
)

// CrossValidationFold is a training/testing partition of the registered datasets.
type CrossValidationFold[D any] struct {
	Training []*DataItem[D]
	Testing  []*DataItem[D]
}

func (fold CrossValidationFold[D]) GetTrainingData() []*DataItem[D] {
	return fold.Training
}

func (fold CrossValidationFold[D]) GetTestingData() []*DataItem[D] {
	return fold.Testing
}

// GetCrossValidationFolds splits the datasets into nFolds contiguous groups whose sizes
// differ by at most one. Fold i tests on group i and trains on every other dataset in
// manager order. If randomize is set, the datasets are shuffled before splitting.
func (m *DataManager[D]) GetCrossValidationFolds(nFolds int, randomize bool) ([]CrossValidationFold[D], error) {
	n := len(m.items)
	if nFolds <= 1 || nFolds > n {
		return nil, base.InvalidInputf("number of folds must be in (1, %d], got %d", n, nFolds)
	}
	order := lo.Range(n)
	if randomize {
		order = m.rng.Permutation(n)
	}
	groups := parallel.Split(order, nFolds)
	folds := make([]CrossValidationFold[D], nFolds)
	for i, group := range groups {
		testing := make([]*DataItem[D], 0, len(group))
		membership := bitset.New(uint(n))
		for _, idx := range group {
			testing = append(testing, m.items[idx])
			membership.Set(uint(idx))
		}
		folds[i] = CrossValidationFold[D]{Training: m.itemsNotIn(membership), Testing: testing}
	}
	return folds, nil
}

// itemsNotIn returns the datasets whose index is not set in membership, in manager order.
func (m *DataManager[D]) itemsNotIn(membership *bitset.BitSet) []*DataItem[D] {
	items := make([]*DataItem[D], 0, uint(len(m.items))-membership.Count())
	for i, item := range m.items {
		if !membership.Test(uint(i)) {
			items = append(items, item)
		}
	}
	return items
}

// GetLeaveOneOutCrossValidationFolds creates one fold per dataset, each testing on that
// dataset alone.
func (m *DataManager[D]) GetLeaveOneOutCrossValidationFolds() []CrossValidationFold[D] {
	folds := make([]CrossValidationFold[D], len(m.items))
	membership := bitset.New(uint(len(m.items)))
	for i := range m.items {
		membership.Set(uint(i))
		folds[i] = CrossValidationFold[D]{
			Training: m.itemsNotIn(membership),
			Testing:  []*DataItem[D]{m.items[i]},
		}
		membership.Clear(uint(i))
	}
	return folds
}
