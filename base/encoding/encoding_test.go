// Copyright 2022 gorse Project Authors
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
package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"gonum.org/v1/gonum/mat"
)

func TestWriteInt(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteInt(buf, -42))
	assert.NoError(t, WriteFloat64(buf, 3.5))
	v, err := ReadInt(buf)
	assert.NoError(t, err)
	assert.Equal(t, -42, v)
	f, err := ReadFloat64(buf)
	assert.NoError(t, err)
	assert.Equal(t, 3.5, f)
	_, err = ReadInt(buf)
	assert.Error(t, err)
}

func TestWriteVector(t *testing.T) {
	a := mat.NewVecDense(3, []float64{1, 2, 3})
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteVector(buf, a))
	assert.NoError(t, WriteVector(buf, &mat.VecDense{}))
	b, err := ReadVector(buf)
	assert.NoError(t, err)
	assert.True(t, mat.Equal(a, b))
	empty, err := ReadVector(buf)
	assert.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestWriteMatrix(t *testing.T) {
	a := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	buf := bytes.NewBuffer(nil)
	err := WriteMatrix(buf, a)
	assert.NoError(t, err)
	b, err := ReadMatrix(buf)
	assert.NoError(t, err)
	assert.True(t, mat.Equal(a, b))
	// truncated stream
	buf.Reset()
	assert.NoError(t, WriteMatrix(buf, a))
	truncated := bytes.NewBuffer(buf.Bytes()[:buf.Len()-4])
	_, err = ReadMatrix(truncated)
	assert.Error(t, err)
}

func TestReadMatrix_InvalidShape(t *testing.T) {
	for _, shape := range [][2]int{{1 << 33, 1 << 31}, {-1, 3}, {3, -1}, {maxLength, 2}} {
		buf := bytes.NewBuffer(nil)
		assert.NoError(t, WriteInt(buf, shape[0]))
		assert.NoError(t, WriteInt(buf, shape[1]))
		_, err := ReadMatrix(buf)
		assert.Error(t, err, "shape %v", shape)
	}
	// an announced length larger than the stream fails without reading past it
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteInt(buf, maxLength))
	assert.NoError(t, WriteFloat64(buf, 1))
	_, err := ReadVector(buf)
	assert.Error(t, err)
}

func TestReadFloats(t *testing.T) {
	values := make([]float64, readChunk*2+3)
	for i := range values {
		values[i] = float64(i)
	}
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteVector(buf, mat.NewVecDense(len(values), values)))
	v, err := ReadVector(buf)
	assert.NoError(t, err)
	assert.Equal(t, values, v.RawVector().Data)
}

func TestWriteString(t *testing.T) {
	a := "abc"
	buf := bytes.NewBuffer(nil)
	err := WriteString(buf, a)
	assert.NoError(t, err)
	var b string
	b, err = ReadString(buf)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWriteMessage(t *testing.T) {
	a, err := structpb.NewStruct(map[string]any{"name": "PCAModelBuilder", "noise": 0.1})
	assert.NoError(t, err)
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteMessage(buf, a))
	b := new(structpb.Struct)
	assert.NoError(t, ReadMessage(buf, b))
	assert.True(t, proto.Equal(a, b))
}
