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
	"math"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/base/encoding"
	"gonum.org/v1/gonum/mat"
)

// Vector represents plain vectors. Each entry is a one-dimensional point whose
// coordinate is its index.
type Vector struct {
	n int
}

// NewVector creates a representer for vectors of length n.
func NewVector(n int) (*Vector, error) {
	if n <= 0 {
		return nil, base.InvalidInputf("vector length must be positive, got %d", n)
	}
	return &Vector{n: n}, nil
}

func (v *Vector) Name() string {
	return "vector"
}

func (v *Vector) Version() string {
	return "1.0"
}

func (v *Vector) Type() string {
	return "VECTOR"
}

func (v *Vector) Dimensions() int {
	return 1
}

func (v *Vector) NumberOfPoints() int {
	return v.n
}

func (v *Vector) Domain() []Point {
	domain := make([]Point, v.n)
	for i := range domain {
		domain[i] = Point{float64(i)}
	}
	return domain
}

func (v *Vector) SampleToSampleVector(sample []float64) (*mat.VecDense, error) {
	if len(sample) != v.n {
		return nil, base.InvalidInputf("expect vector of length %d, got %d", v.n, len(sample))
	}
	data := make([]float64, v.n)
	copy(data, sample)
	return mat.NewVecDense(v.n, data), nil
}

func (v *Vector) SampleVectorToSample(vec mat.Vector) ([]float64, error) {
	if vec.Len() != v.n {
		return nil, base.InvalidInputf("expect sample vector of length %d, got %d", v.n, vec.Len())
	}
	sample := make([]float64, v.n)
	for i := range sample {
		sample[i] = vec.AtVec(i)
	}
	return sample, nil
}

func (v *Vector) PointSampleFromSample(sample []float64, ptId int) ([]float64, error) {
	if ptId < 0 || ptId >= len(sample) {
		return nil, base.InvalidInputf("point id %d out of range [0, %d)", ptId, len(sample))
	}
	return []float64{sample[ptId]}, nil
}

func (v *Vector) PointIdForPoint(pt Point) (int, error) {
	if len(pt) != 1 {
		return 0, base.InvalidInputf("expect 1-dimensional point, got %d", len(pt))
	}
	id := int(math.Round(pt[0]))
	if float64(id) != pt[0] || id < 0 || id >= v.n {
		return 0, base.InvalidInputf("point %v is not in the domain", pt[0])
	}
	return id, nil
}

func (v *Vector) MapPointIdToInternalIndex(ptId, _ int) int {
	return ptId
}

func (v *Vector) Save(w io.Writer) error {
	return encoding.WriteInt(w, v.n)
}

func (v *Vector) Load(r io.Reader) error {
	n, err := encoding.ReadInt(r)
	if err != nil {
		return base.IOError(err, "failed to read vector representer")
	}
	if n <= 0 {
		return base.InvalidModelf("invalid vector length %d", n)
	}
	v.n = n
	return nil
}
