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

// Package blob stores named byte streams on a local directory or an object storage
// service.
package blob

import "io"

// Store is a flat namespace of blobs. Names may contain slashes.
type Store interface {
	// Open a blob for reading.
	Open(name string) (io.ReadCloser, error)
	// Create a blob for writing. The blob is complete once the writer is closed and the
	// returned channel yields the result of the upload.
	Create(name string) (io.WriteCloser, <-chan error, error)
	// List names of all the blobs.
	List() ([]string, error)
	// Remove a blob.
	Remove(name string) error
}

// trimPrefix strips the key prefix of a store from an object key.
func trimPrefix(key, prefix string) string {
	if prefix == "" {
		return key
	}
	if len(key) < len(prefix) || key[:len(prefix)] != prefix {
		return ""
	}
	key = key[len(prefix):]
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	return key
}

// upload runs write in the background, feeding it from the returned pipe writer.
func upload(write func(r io.Reader) error) (io.WriteCloser, <-chan error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := write(pr)
		// unblock the writer if the upload stopped early
		_ = pr.CloseWithError(err)
		done <- err
	}()
	return pw, done
}
