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

package storage

import (
	"bufio"
	"bytes"
	"io"
	"slices"
	"strings"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/model"
	"github.com/gorse-io/statmodel/representer"
	"github.com/gorse-io/statmodel/storage/blob"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// ModelExt is the extension of model blobs.
const ModelExt = ".model"

// ModelStore saves and loads statistical models by name. newRepresenter creates the empty
// representer that a loaded model fills.
type ModelStore[D any] struct {
	store          blob.Store
	newRepresenter func() representer.Representer[D]
	options        Options
}

func NewModelStore[D any](store blob.Store, newRepresenter func() representer.Representer[D], opts ...Option) *ModelStore[D] {
	return &ModelStore[D]{
		store:          store,
		newRepresenter: newRepresenter,
		options:        NewOptions(opts...),
	}
}

func validateName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || slices.Contains(strings.Split(name, "/"), "..") {
		return base.InvalidInputf("invalid model name %q", name)
	}
	return nil
}

// Save writes a model under name, replacing any model of the same name.
func (s *ModelStore[D]) Save(name string, m *model.StatisticalModel[D]) error {
	if err := validateName(name); err != nil {
		return err
	}
	// encode first so that a failed encoding leaves no blob behind
	var buf bytes.Buffer
	if err := model.SaveStatisticalModelWithVersion(m, &buf, s.options.Version); err != nil {
		return errors.Trace(err)
	}
	w, done, err := s.store.Create(name + ModelExt)
	if err != nil {
		return base.IOError(err, "failed to create model blob")
	}
	_, err = io.Copy(w, &buf)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	if uploadErr := <-done; err == nil {
		err = uploadErr
	}
	if err != nil {
		return base.IOError(err, "failed to write model blob")
	}
	log.Logger().Info("save model", zap.String("name", name), zap.Stringer("version", s.options.Version),
		zap.Int("n_components", m.GetNumberOfPrincipalComponents()))
	return nil
}

// Load reads the model stored under name.
func (s *ModelStore[D]) Load(name string) (*model.StatisticalModel[D], error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	r, err := s.store.Open(name + ModelExt)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, errors.NewNotFound(err, "model "+name)
		}
		return nil, base.IOError(err, "failed to open model blob")
	}
	defer r.Close()
	m, err := model.LoadStatisticalModel(s.newRepresenter(), bufio.NewReader(r), s.options.MaxComponents, s.options.ModelOptions...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}

// List returns names of the stored models in ascending order.
func (s *ModelStore[D]) List() ([]string, error) {
	blobs, err := s.store.List()
	if err != nil {
		return nil, base.IOError(err, "failed to list model blobs")
	}
	var names []string
	for _, b := range blobs {
		if name, ok := strings.CutSuffix(b, ModelExt); ok && name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Remove deletes the model stored under name.
func (s *ModelStore[D]) Remove(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := s.store.Remove(name + ModelExt); err != nil {
		if errors.Is(err, errors.NotFound) {
			return errors.NewNotFound(err, "model "+name)
		}
		return base.IOError(err, "failed to remove model blob")
	}
	return nil
}
