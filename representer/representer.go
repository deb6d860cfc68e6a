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
	"bytes"
	"io"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/base/encoding"
	"github.com/gorse-io/statmodel/base/log"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Point is a location in the domain of a representer.
type Point []float64

// Representer converts between a dataset type D and flat sample vectors. A sample vector
// stores the components of every domain point contiguously, so point i component c lives
// at index MapPointIdToInternalIndex(i, c).
type Representer[D any] interface {
	Name() string
	Version() string
	Type() string
	// Dimensions is the number of components per point.
	Dimensions() int
	NumberOfPoints() int
	Domain() []Point
	SampleToSampleVector(sample D) (*mat.VecDense, error)
	SampleVectorToSample(v mat.Vector) (D, error)
	PointSampleFromSample(sample D, ptId int) ([]float64, error)
	PointIdForPoint(pt Point) (int, error)
	MapPointIdToInternalIndex(ptId, component int) int
	Save(w io.Writer) error
	Load(r io.Reader) error
}

// SampleVectorLength returns the length of sample vectors produced by rep.
func SampleVectorLength[D any](rep Representer[D]) int {
	return rep.NumberOfPoints() * rep.Dimensions()
}

// WriteRepresenter writes the representer group: name, version, type and payload.
func WriteRepresenter[D any](w io.Writer, rep Representer[D]) error {
	for _, s := range []string{rep.Name(), rep.Version(), rep.Type()} {
		if err := encoding.WriteString(w, s); err != nil {
			return base.IOError(err, "failed to write representer header")
		}
	}
	payload := bytes.NewBuffer(nil)
	if err := rep.Save(payload); err != nil {
		return base.IOError(err, "failed to encode representer")
	}
	return base.IOError(encoding.WriteBytes(w, payload.Bytes()), "failed to write representer")
}

// ReadRepresenter reads the representer group into rep. The stored name and type must
// match rep.
func ReadRepresenter[D any](r io.Reader, rep Representer[D]) error {
	var header [3]string
	for i := range header {
		s, err := encoding.ReadString(r)
		if err != nil {
			return base.IOError(err, "failed to read representer header")
		}
		header[i] = s
	}
	name, version, typ := header[0], header[1], header[2]
	if name != rep.Name() || typ != rep.Type() {
		return base.InvalidModelf("representer mismatch: stored %s (%s), expected %s (%s)",
			name, typ, rep.Name(), rep.Type())
	}
	if version != rep.Version() {
		log.Logger().Warn("representer version differs",
			zap.String("stored", version), zap.String("current", rep.Version()))
	}
	payload, err := encoding.ReadBytes(r)
	if err != nil {
		return base.IOError(err, "failed to read representer")
	}
	return rep.Load(bytes.NewReader(payload))
}
