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
package parallel

import (
	"context"
	"sync"

	"github.com/gorse-io/statmodel/base/log"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const chanSize = 1024

/* Parallel Schedulers */

// Parallel schedules and runs tasks in parallel. nJobs is the number of tasks. nWorkers is
// the number of executors. worker is the executed function which is passed the worker id
// and the job id. The ctx argument allows callers to cancel outstanding work.
func Parallel(ctx context.Context, nJobs, nWorkers int, worker func(workerId, jobId int) error) error {
	if nWorkers <= 1 {
		for i := 0; i < nJobs; i++ {
			if err := ctx.Err(); err != nil {
				return errors.Trace(err)
			}
			if err := worker(0, i); err != nil {
				return errors.Trace(err)
			}
		}
	} else {
		// workers cancel the rest of the jobs on the first failure
		jobCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		var (
			mu       sync.Mutex
			firstErr error
		)
		fail := func(err error) {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			cancel()
		}
		c := make(chan int, chanSize)
		// producer
		go func() {
			defer close(c)
			for i := 0; i < nJobs; i++ {
				select {
				case <-jobCtx.Done():
					return
				case c <- i:
				}
			}
		}()
		// consumer
		var wg sync.WaitGroup
		for j := 0; j < nWorkers; j++ {
			// start workers
			workerId := j
			wg.Go(func() {
				var jobId int
				defer func() {
					if r := recover(); r != nil {
						log.Logger().Error("panic recovered", zap.Any("panic", r))
						fail(errors.Errorf("job %d panicked: %v", jobId, r))
					}
				}()
				for {
					select {
					case <-jobCtx.Done():
						return
					case id, ok := <-c:
						if !ok {
							return
						}
						jobId = id
						// run job
						if err := worker(workerId, jobId); err != nil {
							fail(err)
							return
						}
					}
				}
			})
		}
		wg.Wait()
		// check errors
		if firstErr != nil {
			return errors.Trace(firstErr)
		}
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// For runs worker over [0, nJobs) with nWorkers goroutines. It stops handing out jobs once
// ctx is done and returns the context error.
func For(ctx context.Context, nJobs, nWorkers int, worker func(int)) error {
	return Parallel(ctx, nJobs, nWorkers, func(_, jobId int) error {
		worker(jobId)
		return nil
	})
}

func ForEach[T any](a []T, nWorkers int, worker func(int, T)) {
	if nWorkers <= 1 {
		for i, v := range a {
			worker(i, v)
		}
	} else {
		c := make(chan lo.Tuple2[int, T], chanSize)
		// producer
		go func() {
			for i, v := range a {
				c <- lo.Tuple2[int, T]{A: i, B: v}
			}
			close(c)
		}()
		// consumer
		var wg sync.WaitGroup
		for j := 0; j < nWorkers; j++ {
			// start workers
			wg.Go(func() {
				for job := range c {
					worker(job.A, job.B)
				}
			})
		}
		wg.Wait()
	}
}

// Split a slice into n slices and keep the order of elements.
func Split[T any](a []T, n int) [][]T {
	if len(a) == 0 || n <= 0 {
		return nil
	}
	if n > len(a) {
		n = len(a)
	}
	minChunkSize := len(a) / n
	maxChunkNum := len(a) % n
	chunks := make([][]T, n)
	for i, j := 0, 0; i < n; i++ {
		chunkSize := minChunkSize
		if i < maxChunkNum {
			chunkSize++
		}
		chunks[i] = a[j : j+chunkSize]
		j += chunkSize
	}
	return chunks
}
