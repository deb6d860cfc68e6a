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
package dataset

import (
	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/representer"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// DataItem is a registered dataset: its sample vector and the URI it was loaded from.
type DataItem[D any] struct {
	sampleVector *mat.VecDense
	datasetURI   string
	representer  representer.Representer[D]
}

// GetSampleVector returns a copy of the sample vector.
func (item *DataItem[D]) GetSampleVector() *mat.VecDense {
	return mat.VecDenseCopyOf(item.sampleVector)
}

// RawSampleVector returns the stored sample vector. Callers must not modify it.
func (item *DataItem[D]) RawSampleVector() mat.Vector {
	return item.sampleVector
}

func (item *DataItem[D]) GetDatasetURI() string {
	return item.datasetURI
}

func (item *DataItem[D]) GetRepresenter() representer.Representer[D] {
	return item.representer
}

// GetSample converts the sample vector back to a dataset.
func (item *DataItem[D]) GetSample() (D, error) {
	return item.representer.SampleVectorToSample(item.sampleVector)
}

// DataManager aggregates datasets of one representer. AddDataset is not safe for
// concurrent use.
type DataManager[D any] struct {
	representer representer.Representer[D]
	items       []*DataItem[D]
	rng         base.RandomGenerator
}

func NewDataManager[D any](rep representer.Representer[D], opts ...Option) *DataManager[D] {
	return &DataManager[D]{
		representer: rep,
		rng:         NewOptions(opts...).randomGenerator(),
	}
}

func (m *DataManager[D]) GetRepresenter() representer.Representer[D] {
	return m.representer
}

// AddDataset converts sample with the representer and appends it.
func (m *DataManager[D]) AddDataset(sample D, uri string) error {
	vec, err := m.representer.SampleToSampleVector(sample)
	if err != nil {
		if errors.Is(err, base.ErrInvalidInput) {
			return errors.Trace(err)
		}
		return base.InvalidInputf("cannot convert dataset %s: %v", uri, err)
	}
	return m.AddDatasetVector(vec, uri)
}

// AddDatasetVector appends a sample vector that is already flattened.
func (m *DataManager[D]) AddDatasetVector(vec mat.Vector, uri string) error {
	if vec == nil || vec.Len() == 0 {
		return base.InvalidInputf("dataset %s is empty", uri)
	}
	if expect := representer.SampleVectorLength(m.representer); vec.Len() != expect {
		return base.InvalidInputf("dataset %s has %d entries, expect %d", uri, vec.Len(), expect)
	}
	m.items = append(m.items, &DataItem[D]{
		sampleVector: mat.VecDenseCopyOf(vec),
		datasetURI:   uri,
		representer:  m.representer,
	})
	log.Logger().Debug("add dataset", zap.String("uri", uri), zap.Int("n_samples", len(m.items)))
	return nil
}

// GetData returns the registered items in insertion order.
func (m *DataManager[D]) GetData() []*DataItem[D] {
	items := make([]*DataItem[D], len(m.items))
	copy(items, m.items)
	return items
}

func (m *DataManager[D]) GetNumberOfSamples() int {
	return len(m.items)
}
