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

import "time"

type Options struct {
	Seed int64
	Info ModelInfo
}

type Option func(*Options)

// WithSeed fixes the seed of the generator behind random draws.
func WithSeed(seed int64) Option {
	return func(o *Options) {
		o.Seed = seed
	}
}

// WithInfo attaches model info at construction.
func WithInfo(info ModelInfo) Option {
	return func(o *Options) {
		o.Info = info
	}
}

func NewOptions(opts ...Option) Options {
	opt := Options{
		Seed: time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(&opt)
	}
	return opt
}
