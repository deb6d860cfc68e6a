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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_Copy(t *testing.T) {
	// Create parameters
	a := Params{
		NumComponents: 1,
		TotalVariance: 0.1,
		RandomState:   0,
	}
	// Create copy
	b := a.Copy()
	b[NumComponents] = 2
	b[TotalVariance] = 0.2
	b[RandomState] = 1
	// Check original parameters
	assert.Equal(t, 1, a.GetInt(NumComponents, -1))
	assert.Equal(t, 0.1, a.GetFloat64(TotalVariance, -0.1))
	assert.Equal(t, int64(0), a.GetInt64(RandomState, -1))
	// Check copy parameters
	assert.Equal(t, 2, b.GetInt(NumComponents, -1))
	assert.Equal(t, 0.2, b.GetFloat64(TotalVariance, -0.1))
	assert.Equal(t, int64(1), b.GetInt64(RandomState, -1))
}

func TestParams_GetFloat64(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, 0.1, p.GetFloat64(TotalVariance, 0.1))
	// Normal case
	p[TotalVariance] = 1.0
	assert.Equal(t, 1.0, p.GetFloat64(TotalVariance, 0.1))
	// Wrong type case
	p[TotalVariance] = 1
	assert.Equal(t, 1.0, p.GetFloat64(TotalVariance, 0.1))
	p[TotalVariance] = "hello"
	assert.Equal(t, 0.1, p.GetFloat64(TotalVariance, 0.1))
}

func TestParams_GetInt(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, -1, p.GetInt(NumComponents, -1))
	// Normal case
	p[NumComponents] = 0
	assert.Equal(t, 0, p.GetInt(NumComponents, -1))
	// Wrong type case
	p[NumComponents] = "hello"
	assert.Equal(t, -1, p.GetInt(NumComponents, -1))
}

func TestParams_GetInt64(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
	// Normal case
	p[RandomState] = int64(0)
	assert.Equal(t, int64(0), p.GetInt64(RandomState, -1))
	// Wrong type case
	p[RandomState] = 0
	assert.Equal(t, int64(0), p.GetInt64(RandomState, -1))
	p[RandomState] = "hello"
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
}

func TestParams_Overwrite(t *testing.T) {
	a := Params{Jobs: 1, NumComponents: 3}
	b := a.Overwrite(Params{Jobs: 4})
	assert.Equal(t, 1, a.GetInt(Jobs, 0))
	assert.Equal(t, 4, b.GetInt(Jobs, 0))
	assert.Equal(t, 3, b.GetInt(NumComponents, 0))
	assert.JSONEq(t, `{"Jobs":4,"NumComponents":3}`, b.ToString())
}
