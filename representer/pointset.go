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
package representer

import (
	"io"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/base/encoding"
	"gonum.org/v1/gonum/mat"
)

type pointKey [3]float64

func newPointKey(pt []float64) pointKey {
	var key pointKey
	copy(key[:], pt)
	return key
}

// PointSet represents point clouds in 2 or 3 dimensions that share the topology of a
// reference shape. A sample is the list of its points.
type PointSet struct {
	dim       int
	reference [][]float64
	index     map[pointKey]int
}

// NewPointSet creates a representer whose domain is the given reference shape.
func NewPointSet(reference [][]float64) (*PointSet, error) {
	p := new(PointSet)
	if err := p.setReference(reference); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PointSet) setReference(reference [][]float64) error {
	if len(reference) == 0 {
		return base.InvalidInputf("reference shape is empty")
	}
	dim := len(reference[0])
	if dim != 2 && dim != 3 {
		return base.InvalidInputf("points must have 2 or 3 dimensions, got %d", dim)
	}
	points := make([][]float64, len(reference))
	index := make(map[pointKey]int, len(reference))
	for i, pt := range reference {
		if len(pt) != dim {
			return base.InvalidInputf("point %d has %d dimensions, expect %d", i, len(pt), dim)
		}
		key := newPointKey(pt)
		if _, exist := index[key]; exist {
			return base.InvalidInputf("duplicate reference point %v", pt)
		}
		index[key] = i
		points[i] = append([]float64(nil), pt...)
	}
	p.dim, p.reference, p.index = dim, points, index
	return nil
}

func (p *PointSet) Name() string {
	return "pointset"
}

func (p *PointSet) Version() string {
	return "1.0"
}

func (p *PointSet) Type() string {
	return "POINT_SET"
}

func (p *PointSet) Dimensions() int {
	return p.dim
}

func (p *PointSet) NumberOfPoints() int {
	return len(p.reference)
}

func (p *PointSet) Domain() []Point {
	domain := make([]Point, len(p.reference))
	for i, pt := range p.reference {
		domain[i] = append(Point(nil), pt...)
	}
	return domain
}

// Reference returns a copy of the reference shape.
func (p *PointSet) Reference() [][]float64 {
	shape := make([][]float64, len(p.reference))
	for i, pt := range p.reference {
		shape[i] = append([]float64(nil), pt...)
	}
	return shape
}

func (p *PointSet) SampleToSampleVector(sample [][]float64) (*mat.VecDense, error) {
	if len(sample) != len(p.reference) {
		return nil, base.InvalidInputf("expect %d points, got %d", len(p.reference), len(sample))
	}
	data := make([]float64, 0, len(sample)*p.dim)
	for i, pt := range sample {
		if len(pt) != p.dim {
			return nil, base.InvalidInputf("point %d has %d dimensions, expect %d", i, len(pt), p.dim)
		}
		data = append(data, pt...)
	}
	return mat.NewVecDense(len(data), data), nil
}

func (p *PointSet) SampleVectorToSample(v mat.Vector) ([][]float64, error) {
	if v.Len() != len(p.reference)*p.dim {
		return nil, base.InvalidInputf("expect sample vector of length %d, got %d", len(p.reference)*p.dim, v.Len())
	}
	sample := make([][]float64, len(p.reference))
	for i := range sample {
		sample[i] = make([]float64, p.dim)
		for c := range sample[i] {
			sample[i][c] = v.AtVec(p.MapPointIdToInternalIndex(i, c))
		}
	}
	return sample, nil
}

func (p *PointSet) PointSampleFromSample(sample [][]float64, ptId int) ([]float64, error) {
	if ptId < 0 || ptId >= len(sample) {
		return nil, base.InvalidInputf("point id %d out of range [0, %d)", ptId, len(sample))
	}
	return append([]float64(nil), sample[ptId]...), nil
}

// PointIdForPoint looks up pt in the reference shape. Only exact matches are resolved.
func (p *PointSet) PointIdForPoint(pt Point) (int, error) {
	if len(pt) != p.dim {
		return 0, base.InvalidInputf("expect %d-dimensional point, got %d", p.dim, len(pt))
	}
	if id, exist := p.index[newPointKey(pt)]; exist {
		return id, nil
	}
	return 0, base.UnsupportedOperationf("closest point search for %v", []float64(pt))
}

func (p *PointSet) MapPointIdToInternalIndex(ptId, component int) int {
	return ptId*p.dim + component
}

func (p *PointSet) Save(w io.Writer) error {
	data := make([]float64, 0, len(p.reference)*p.dim)
	for _, pt := range p.reference {
		data = append(data, pt...)
	}
	return encoding.WriteMatrix(w, mat.NewDense(len(p.reference), p.dim, data))
}

func (p *PointSet) Load(r io.Reader) error {
	m, err := encoding.ReadMatrix(r)
	if err != nil {
		return base.IOError(err, "failed to read reference shape")
	}
	rows, _ := m.Dims()
	reference := make([][]float64, rows)
	for i := range reference {
		reference[i] = mat.Row(nil, i, m)
	}
	if err = p.setReference(reference); err != nil {
		return base.InvalidModelf("invalid reference shape: %v", err)
	}
	return nil
}
