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

import "github.com/gorse-io/statmodel/model"

type Options struct {
	Version       model.Version
	MaxComponents int
	ModelOptions  []model.Option
}

type Option func(*Options)

// WithVersion sets the file format of saved models.
func WithVersion(version model.Version) Option {
	return func(o *Options) {
		o.Version = version
	}
}

// WithMaxComponents keeps only the leading components of loaded models.
func WithMaxComponents(maxComponents int) Option {
	return func(o *Options) {
		o.MaxComponents = maxComponents
	}
}

// WithModelOptions passes options to loaded models.
func WithModelOptions(opts ...model.Option) Option {
	return func(o *Options) {
		o.ModelOptions = append(o.ModelOptions, opts...)
	}
}

func NewOptions(opts ...Option) Options {
	opt := Options{
		Version: model.CurrentVersion,
	}
	for _, o := range opts {
		o(&opt)
	}
	return opt
}
