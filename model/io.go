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
	"fmt"
	"io"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/base/encoding"
	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/representer"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
	"gonum.org/v1/gonum/mat"
)

const modelMagic = "statmodel"

// Version is the version of the model file format.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

var (
	// Version08 stores the basis pre-multiplied by the standard deviation of each direction.
	Version08 = Version{Major: 0, Minor: 8}
	// Version09 stores the orthonormal basis.
	Version09 = Version{Major: 0, Minor: 9}

	CurrentVersion = Version09
)

// SaveStatisticalModel writes m in the current format.
func SaveStatisticalModel[D any](m *StatisticalModel[D], w io.Writer) error {
	return SaveStatisticalModelWithVersion(m, w, CurrentVersion)
}

// SaveStatisticalModelWithVersion writes m in the given format version.
func SaveStatisticalModelWithVersion[D any](m *StatisticalModel[D], w io.Writer, version Version) error {
	var basis *mat.Dense
	switch version {
	case Version08:
		basis = m.pcaBasis
	case Version09:
		var err error
		if basis, err = m.GetOrthonormalPCABasisMatrix(); err != nil {
			return errors.Trace(err)
		}
	default:
		return base.BadVersionf("cannot write model version %s", version)
	}
	// header
	if err := encoding.WriteString(w, modelMagic); err != nil {
		return base.IOError(err, "failed to write header")
	}
	if err := encoding.WriteInt(w, version.Major); err != nil {
		return base.IOError(err, "failed to write version")
	}
	if err := encoding.WriteInt(w, version.Minor); err != nil {
		return base.IOError(err, "failed to write version")
	}
	// representer
	if err := representer.WriteRepresenter(w, m.representer); err != nil {
		return errors.Trace(err)
	}
	// model
	if err := encoding.WriteVector(w, m.mean); err != nil {
		return base.IOError(err, "failed to write mean")
	}
	if err := encoding.WriteMatrix(w, basis); err != nil {
		return base.IOError(err, "failed to write basis")
	}
	if err := encoding.WriteVector(w, m.pcaVariance); err != nil {
		return base.IOError(err, "failed to write variance")
	}
	if err := encoding.WriteFloat64(w, m.noiseVariance); err != nil {
		return base.IOError(err, "failed to write noise variance")
	}
	// model info
	var scores mat.Matrix = &mat.Dense{}
	if m.modelInfo.Scores != nil {
		scores = m.modelInfo.Scores
	}
	if err := encoding.WriteMatrix(w, scores); err != nil {
		return base.IOError(err, "failed to write scores")
	}
	builders, err := builderInfosToStruct(m.modelInfo.BuilderInfos)
	if err != nil {
		return errors.Trace(err)
	}
	if err = encoding.WriteMessage(w, builders); err != nil {
		return base.IOError(err, "failed to write builder info")
	}
	return nil
}

// LoadStatisticalModel reads a model written in either format version. rep is filled
// from the stream and must match the stored representer. If maxComponents is positive,
// only the leading maxComponents components are kept.
func LoadStatisticalModel[D any](rep representer.Representer[D], r io.Reader, maxComponents int, opts ...Option) (*StatisticalModel[D], error) {
	m, err := loadStatisticalModel(rep, r, maxComponents, opts...)
	if err != nil {
		log.Logger().Error("failed to load model", zap.Error(err))
		return nil, err
	}
	return m, nil
}

func loadStatisticalModel[D any](rep representer.Representer[D], r io.Reader, maxComponents int, opts ...Option) (*StatisticalModel[D], error) {
	// header
	magic, err := encoding.ReadString(r)
	if err != nil {
		return nil, base.IOError(err, "failed to read header")
	}
	if magic != modelMagic {
		return nil, base.InvalidModelf("not a model file")
	}
	var version Version
	if version.Major, err = encoding.ReadInt(r); err != nil {
		return nil, base.IOError(err, "failed to read version")
	}
	if version.Minor, err = encoding.ReadInt(r); err != nil {
		return nil, base.IOError(err, "failed to read version")
	}
	if version != Version08 && version != Version09 {
		return nil, base.BadVersionf("unsupported model version %s", version)
	}
	// representer
	if err = representer.ReadRepresenter(r, rep); err != nil {
		return nil, errors.Trace(err)
	}
	// model
	mean, err := encoding.ReadVector(r)
	if err != nil {
		return nil, base.IOError(err, "failed to read mean")
	}
	basis, err := encoding.ReadMatrix(r)
	if err != nil {
		return nil, base.IOError(err, "failed to read basis")
	}
	variance, err := encoding.ReadVector(r)
	if err != nil {
		return nil, base.IOError(err, "failed to read variance")
	}
	noiseVariance, err := encoding.ReadFloat64(r)
	if err != nil {
		return nil, base.IOError(err, "failed to read noise variance")
	}
	// model info
	scores, err := encoding.ReadMatrix(r)
	if err != nil {
		return nil, base.IOError(err, "failed to read scores")
	}
	builders := new(structpb.Struct)
	if err = encoding.ReadMessage(r, builders); err != nil {
		return nil, base.IOError(err, "failed to read builder info")
	}
	builderInfos, err := builderInfosFromStruct(builders)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// truncate components
	if _, k := basis.Dims(); maxComponents > 0 && maxComponents < k && variance.Len() == k {
		d, _ := basis.Dims()
		basis = mat.DenseCopyOf(basis.Slice(0, d, 0, maxComponents))
		variance = mat.VecDenseCopyOf(variance.SliceVec(0, maxComponents))
		if sr, sc := scores.Dims(); sr >= maxComponents && sc > 0 {
			scores = mat.DenseCopyOf(scores.Slice(0, maxComponents, 0, sc))
		}
	}
	opts = append([]Option{WithInfo(NewModelInfo(scores, builderInfos...))}, opts...)
	var m *StatisticalModel[D]
	if version == Version08 {
		m, err = NewStatisticalModelFromScaledBasis(rep, mean, basis, variance, noiseVariance, opts...)
	} else {
		m, err = NewStatisticalModel(rep, mean, basis, variance, noiseVariance, opts...)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load model",
		zap.Stringer("version", version),
		zap.Int("n_components", m.GetNumberOfPrincipalComponents()),
		zap.String("representer", rep.Name()))
	return m, nil
}
