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
package model

import (
	"encoding/json"
	"reflect"

	"github.com/gorse-io/statmodel/base/log"
	"go.uber.org/zap"
)

/* ParamName */

// ParamName is the type of hyper-parameter names.
type ParamName string

// Predefined hyper-parameter names
const (
	NumComponents ParamName = "NumComponents" // maximum number of principal components
	TotalVariance ParamName = "TotalVariance" // fraction of the total variance to keep
	Jobs          ParamName = "Jobs"          // number of workers
	RandomState   ParamName = "RandomState"   // random state (seed)
	Tolerance     ParamName = "Tolerance"     // threshold below which a variance counts as zero
)

// Params stores hyper-parameters for a model builder. It is a map between names and
// values. For example, a PCA build keeping 95% of the variance is configured by:
//
//	model.Params{
//		model.TotalVariance: 0.95,
//		model.Jobs:          4,
//	}
type Params map[ParamName]interface{}

// Copy hyper-parameters.
func (parameters Params) Copy() Params {
	newParams := make(Params)
	for k, v := range parameters {
		newParams[k] = v
	}
	return newParams
}

// GetInt gets a integer parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetInt(name ParamName, _default int) int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int:
			return val
		case int64:
			return int(val)
		default:
			log.Logger().Error("type mismatch", zap.String("param", string(name)),
				zap.String("expect", "int"), zap.Stringer("actual", reflect.TypeOf(val)))
		}
	}
	return _default
}

// GetInt64 gets a int64 parameter by name. Returns _default if not exists or type doesn't match. The
// type will be converted if given int.
func (parameters Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int64:
			return val
		case int:
			return int64(val)
		default:
			log.Logger().Error("type mismatch", zap.String("param", string(name)),
				zap.String("expect", "int64"), zap.Stringer("actual", reflect.TypeOf(val)))
		}
	}
	return _default
}

// GetFloat64 gets a float64 parameter by name. Integers are converted.
func (parameters Params) GetFloat64(name ParamName, _default float64) float64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case float64:
			return val
		case float32:
			return float64(val)
		case int:
			return float64(val)
		default:
			log.Logger().Error("type mismatch", zap.String("param", string(name)),
				zap.String("expect", "float64"), zap.Stringer("actual", reflect.TypeOf(val)))
		}
	}
	return _default
}

// Overwrite merges params into a copy of parameters.
func (parameters Params) Overwrite(params Params) Params {
	merged := parameters.Copy()
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

func (parameters Params) ToString() string {
	b, err := json.Marshal(parameters)
	if err != nil {
		log.Logger().Fatal("failed to marshal params", zap.Error(err))
	}
	return string(b)
}
