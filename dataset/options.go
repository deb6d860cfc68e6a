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
	"time"

	"github.com/gorse-io/statmodel/base"
)

type Options struct {
	Seed int64
}

type Option func(*Options)

// WithSeed fixes the seed used to shuffle cross-validation folds.
func WithSeed(seed int64) Option {
	return func(o *Options) {
		o.Seed = seed
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

func (o Options) randomGenerator() base.RandomGenerator {
	return base.NewRandomGenerator(o.Seed)
}
