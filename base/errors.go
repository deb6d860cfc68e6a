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

package base

import (
	"github.com/juju/errors"
)

// Error kinds returned by representers, data managers, models and builders. Callers
// match them with errors.Is.
const (
	ErrInvalidInput         = errors.NotValid
	ErrUnsupportedOperation = errors.NotSupported

	ErrInvalidModel       = errors.ConstError("invalid model")
	ErrSingularCovariance = errors.ConstError("singular covariance")
	ErrIO                 = errors.ConstError("io error")
	ErrBadVersion         = errors.ConstError("bad version")
)

// InvalidInputf reports a malformed or mismatched argument, e.g. a wrong number of
// coefficients, folds or an unknown point id.
func InvalidInputf(format string, args ...any) error {
	return errors.NotValidf(format, args...)
}

// UnsupportedOperationf reports an operation the representer or model cannot perform.
func UnsupportedOperationf(format string, args ...any) error {
	return errors.NotSupportedf(format, args...)
}

// InvalidModelf reports inconsistent model dimensions at construction or load time.
func InvalidModelf(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), ErrInvalidModel)
}

// SingularCovariancef reports a non-invertible per-point covariance.
func SingularCovariancef(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), ErrSingularCovariance)
}

// BadVersionf reports an unrecognized persisted format version.
func BadVersionf(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), ErrBadVersion)
}

// IOError wraps a persistence read or write failure.
func IOError(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.WithType(errors.Annotate(err, message), ErrIO)
}
