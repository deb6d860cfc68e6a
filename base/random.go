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

package base

import (
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
)

// RandomGenerator is the random generator used to draw latent coefficients, noise and
// fold permutations. It is safe for concurrent use.
type RandomGenerator struct {
	*rand.Rand
}

// NewRandomGenerator creates a RandomGenerator.
func NewRandomGenerator(seed int64) RandomGenerator {
	return RandomGenerator{rand.New(&lockedSource{src: rand.NewSource(seed)})}
}

// NewTimeSeededGenerator creates a RandomGenerator seeded by the wall clock.
func NewTimeSeededGenerator() RandomGenerator {
	return NewRandomGenerator(time.Now().UnixNano())
}

// NormalVector64 makes a vec filled with normal random floats.
func (rng RandomGenerator) NormalVector64(size int, mean, stdDev float64) []float64 {
	ret := make([]float64, size)
	for i := 0; i < len(ret); i++ {
		ret[i] = rng.NormFloat64()*stdDev + mean
	}
	return ret
}

// StandardNormalVec makes a dense vector of i.i.d. N(0, 1) draws.
func (rng RandomGenerator) StandardNormalVec(size int) *mat.VecDense {
	if size == 0 {
		return &mat.VecDense{}
	}
	return mat.NewVecDense(size, rng.NormalVector64(size, 0, 1))
}

// Permutation returns a uniformly shuffled copy of [0, n).
func (rng RandomGenerator) Permutation(n int) []int {
	return rng.Perm(n)
}

// lockedSource allows a random number generator to be used by multiple goroutines concurrently.
// The code is very similar to math/rand.lockedSource, which is unfortunately not exposed.
type lockedSource struct {
	mut sync.Mutex
	src rand.Source
}

func (r *lockedSource) Int63() (n int64) {
	r.mut.Lock()
	n = r.src.Int63()
	r.mut.Unlock()
	return
}

func (r *lockedSource) Seed(seed int64) {
	r.mut.Lock()
	r.src.Seed(seed)
	r.mut.Unlock()
}
