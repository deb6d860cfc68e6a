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
	"encoding/binary"
	"io"

	"github.com/juju/errors"
	"github.com/matttproud/golang_protobuf_extensions/pbutil"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
	"gonum.org/v1/gonum/mat"
)

// maxLength bounds the number of elements a length prefix may announce.
const maxLength = 1 << 28

// readChunk is the number of float64 values allocated per read, so that a forged
// length prefix on a short stream fails before the full buffer is allocated.
const readChunk = 1 << 16

// WriteInt writes a 64-bit integer to byte stream.
func WriteInt(w io.Writer, v int) error {
	return errors.Trace(binary.Write(w, binary.LittleEndian, int64(v)))
}

// ReadInt reads a 64-bit integer from byte stream.
func ReadInt(r io.Reader) (int, error) {
	var v int64
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, errors.Trace(err)
	}
	return int(v), nil
}

// WriteFloat64 writes a float64 to byte stream.
func WriteFloat64(w io.Writer, v float64) error {
	return errors.Trace(binary.Write(w, binary.LittleEndian, v))
}

// ReadFloat64 reads a float64 from byte stream.
func ReadFloat64(r io.Reader) (float64, error) {
	var v float64
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, errors.Trace(err)
	}
	return v, nil
}

// WriteVector writes a length-prefixed vector to byte stream.
func WriteVector(w io.Writer, v mat.Vector) error {
	n := 0
	if v != nil {
		n = v.Len()
	}
	if err := WriteInt(w, n); err != nil {
		return err
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return errors.Trace(binary.Write(w, binary.LittleEndian, data))
}

// ReadVector reads a length-prefixed vector from byte stream.
func ReadVector(r io.Reader) (*mat.VecDense, error) {
	n, err := ReadInt(r)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > maxLength {
		return nil, errors.Errorf("invalid vector length %d", n)
	}
	if n == 0 {
		return &mat.VecDense{}, nil
	}
	data, err := readFloats(r, n)
	if err != nil {
		return nil, err
	}
	return mat.NewVecDense(n, data), nil
}

// WriteMatrix writes a row-major matrix with its shape to byte stream.
func WriteMatrix(w io.Writer, m mat.Matrix) error {
	rows, cols := 0, 0
	if m != nil {
		rows, cols = m.Dims()
	}
	if err := WriteInt(w, rows); err != nil {
		return err
	}
	if err := WriteInt(w, cols); err != nil {
		return err
	}
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := range row {
			row[j] = m.At(i, j)
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// ReadMatrix reads a row-major matrix with its shape from byte stream.
func ReadMatrix(r io.Reader) (*mat.Dense, error) {
	rows, err := ReadInt(r)
	if err != nil {
		return nil, err
	}
	cols, err := ReadInt(r)
	if err != nil {
		return nil, err
	}
	if rows < 0 || cols < 0 || (cols != 0 && rows > maxLength/cols) {
		return nil, errors.Errorf("invalid matrix shape %dx%d", rows, cols)
	}
	if rows == 0 || cols == 0 {
		return &mat.Dense{}, nil
	}
	data, err := readFloats(r, rows*cols)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(rows, cols, data), nil
}

// readFloats reads n float64 values, growing the buffer as data arrives.
func readFloats(r io.Reader, n int) ([]float64, error) {
	data := make([]float64, 0, min(n, readChunk))
	for len(data) < n {
		chunk := make([]float64, min(n-len(data), readChunk))
		if err := binary.Read(r, binary.LittleEndian, chunk); err != nil {
			return nil, errors.Trace(err)
		}
		data = append(data, chunk...)
	}
	return data, nil
}

// WriteString writes string to byte stream.
func WriteString(w io.Writer, s string) error {
	return WriteBytes(w, []byte(s))
}

// ReadString reads string from byte stream.
func ReadString(r io.Reader) (string, error) {
	data, err := ReadBytes(r)
	return string(data), err
}

// WriteBytes writes bytes to byte stream.
func WriteBytes(w io.Writer, s []byte) error {
	err := binary.Write(w, binary.LittleEndian, int32(len(s)))
	if err != nil {
		return errors.Trace(err)
	}
	n, err := w.Write(s)
	if err != nil {
		return errors.Trace(err)
	} else if n != len(s) {
		return errors.New("fail to write string")
	}
	return nil
}

// ReadBytes reads bytes from byte stream.
func ReadBytes(r io.Reader) ([]byte, error) {
	var length int32
	err := binary.Read(r, binary.LittleEndian, &length)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if length < 0 {
		return nil, errors.Errorf("invalid byte length %d", length)
	}
	var buf bytes.Buffer
	if _, err = io.CopyN(&buf, r, int64(length)); err != nil {
		return nil, errors.Trace(err)
	}
	return buf.Bytes(), nil
}

// WriteMessage writes a length-delimited protobuf message to byte stream.
func WriteMessage(w io.Writer, m proto.Message) error {
	_, err := pbutil.WriteDelimited(w, protoadapt.MessageV1Of(m))
	return errors.Trace(err)
}

// ReadMessage reads a length-delimited protobuf message from byte stream.
func ReadMessage(r io.Reader, m proto.Message) error {
	_, err := pbutil.ReadDelimited(r, protoadapt.MessageV1Of(m))
	return errors.Trace(err)
}
