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
	"io"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/base/encoding"
	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/representer"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const dataManagerMagic = "statmodel/data"

// Save writes the representer and every dataset to w.
func (m *DataManager[D]) Save(w io.Writer) error {
	if err := encoding.WriteString(w, dataManagerMagic); err != nil {
		return base.IOError(err, "failed to write header")
	}
	if err := representer.WriteRepresenter(w, m.representer); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteInt(w, len(m.items)); err != nil {
		return base.IOError(err, "failed to write number of datasets")
	}
	for _, item := range m.items {
		if err := encoding.WriteString(w, item.datasetURI); err != nil {
			return base.IOError(err, "failed to write dataset uri")
		}
		if err := encoding.WriteVector(w, item.sampleVector); err != nil {
			return base.IOError(err, "failed to write sample vector")
		}
	}
	return nil
}

// LoadDataManager reads datasets written by Save. rep is filled from the stream.
func LoadDataManager[D any](rep representer.Representer[D], r io.Reader, opts ...Option) (*DataManager[D], error) {
	magic, err := encoding.ReadString(r)
	if err != nil {
		return nil, base.IOError(err, "failed to read header")
	}
	if magic != dataManagerMagic {
		return nil, base.BadVersionf("unknown data format %q", magic)
	}
	if err = representer.ReadRepresenter(r, rep); err != nil {
		return nil, errors.Trace(err)
	}
	n, err := encoding.ReadInt(r)
	if err != nil {
		return nil, base.IOError(err, "failed to read number of datasets")
	}
	m := NewDataManager(rep, opts...)
	for i := 0; i < n; i++ {
		uri, err := encoding.ReadString(r)
		if err != nil {
			return nil, base.IOError(err, "failed to read dataset uri")
		}
		vec, err := encoding.ReadVector(r)
		if err != nil {
			return nil, base.IOError(err, "failed to read sample vector")
		}
		if err = m.AddDatasetVector(vec, uri); err != nil {
			return nil, errors.Trace(err)
		}
	}
	log.Logger().Info("load data manager", zap.Int("n_samples", n), zap.String("representer", rep.Name()))
	return m, nil
}
