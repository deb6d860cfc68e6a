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
	"github.com/gorse-io/statmodel/representer"
	"gonum.org/v1/gonum/mat"
)

// PointValue constrains the model value at a domain point.
type PointValue struct {
	Point representer.Point
	Value []float64
}

// PointIdValue constrains the model value at a point id.
type PointIdValue struct {
	PointId int
	Value   []float64
}

// PointValueWithCovariance is a point observation with a dim×dim covariance expressing
// its uncertainty.
type PointValueWithCovariance struct {
	PointValue
	Covariance mat.Matrix
}
