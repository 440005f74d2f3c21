// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conc

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestPool(t *testing.T) {
	pool := NewDefaultPool[int]()
	defer pool.Release()

	taskNum := pool.Cap() * 2
	futures := make([]*Future[int], 0, taskNum)
	for i := 0; i < taskNum; i++ {
		res := i
		futures = append(futures, pool.Submit(func() (int, error) {
			time.Sleep(10 * time.Millisecond)
			return res, nil
		}))
	}

	require.NoError(t, AwaitAll(futures...))
	for i, future := range futures {
		assert.Equal(t, i, future.Value())
		assert.True(t, future.Done())
	}

	assert.Error(t, pool.Resize(0))
	assert.NoError(t, pool.Resize(pool.Cap()+1))
}

func TestPoolError(t *testing.T) {
	pool := NewPool[struct{}](2)
	defer pool.Release()

	errBoom := errors.New("boom")
	ok := pool.Submit(func() (struct{}, error) { return struct{}{}, nil })
	bad := pool.Submit(func() (struct{}, error) { return struct{}{}, errBoom })

	assert.NoError(t, ok.Err())
	assert.ErrorIs(t, bad.Err(), errBoom)
	assert.ErrorIs(t, AwaitAll(ok, bad), errBoom)
}

func TestPoolPreHandlerAndPanic(t *testing.T) {
	calls := atomic.NewInt32(0)
	recovered := atomic.NewBool(false)
	pool := NewPool[int](1,
		WithPreHandler(func() { calls.Inc() }),
		WithPanicHandler(func(any) { recovered.Store(true) }),
	)
	defer pool.Release()

	_, err := pool.Submit(func() (int, error) { return 1, nil }).Await()
	require.NoError(t, err)

	_, err = pool.Submit(func() (int, error) { panic("bad task") }).Await()
	assert.Error(t, err)
	assert.Eventually(t, recovered.Load, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPoolReleased(t *testing.T) {
	pool := NewPool[int](1)
	pool.Release()
	_, err := pool.Submit(func() (int, error) { return 1, nil }).Await()
	assert.Error(t, err)
}
