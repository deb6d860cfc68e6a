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
	"strconv"
	"strings"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/representer"
	"github.com/juju/errors"
)

// ParseFloats parses every field as a float64.
func ParseFloats(fields []string) ([]float64, error) {
	values := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, base.InvalidInputf("field %d: %v", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// LoadCSV reads one vector dataset per line: its URI followed by the entries. The vector
// length is taken from the first line.
func LoadCSV(r io.Reader, sep string, opts ...Option) (*DataManager[[]float64], error) {
	var (
		m      *DataManager[[]float64]
		errRet error
	)
	err := base.ReadLines(base.NewLineScanner(r), sep, func(line int, fields []string) bool {
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return true
		}
		if len(fields) < 2 {
			errRet = base.InvalidInputf("line %d: expect uri and values", line+1)
			return false
		}
		values, err := ParseFloats(fields[1:])
		if err != nil {
			errRet = errors.Annotatef(err, "line %d", line+1)
			return false
		}
		if m == nil {
			rep, err := representer.NewVector(len(values))
			if err != nil {
				errRet = err
				return false
			}
			m = NewDataManager[[]float64](rep, opts...)
		}
		if err = m.AddDataset(values, strings.TrimSpace(fields[0])); err != nil {
			errRet = errors.Annotatef(err, "line %d", line+1)
			return false
		}
		return true
	})
	if err != nil {
		return nil, base.IOError(err, "failed to read csv")
	}
	if errRet != nil {
		return nil, errRet
	}
	if m == nil {
		return nil, base.InvalidInputf("csv contains no dataset")
	}
	return m, nil
}
