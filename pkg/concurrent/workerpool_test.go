// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_Run(t *testing.T) {
	tests := []struct {
		name      string
		functions int
		failAt    int // index of function that errors, -1 for none
		wantErr   bool
	}{
		{"no functions", 0, -1, false},
		{"all succeed", 5, -1, false},
		{"one fails", 5, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(3)

			var ran atomic.Int32
			functions := make([]func() error, tt.functions)
			for i := range functions {
				functions[i] = func() error {
					ran.Add(1)
					if i == tt.failAt {
						return errors.New("boom")
					}
					return nil
				}
			}

			err := pool.Run(context.Background(), functions...)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, int32(tt.functions), ran.Load())
			}
		})
	}
}

func TestWorkerPool_RunAll_CollectsAllErrors(t *testing.T) {
	pool := NewWorkerPool(2)

	errs := pool.RunAll(context.Background(),
		func() error { return errors.New("first") },
		func() error { return nil },
		func() error { return errors.New("second") },
	)

	assert.Len(t, errs, 2)
}

func TestWorkerPool_RunAll_CancelledContext(t *testing.T) {
	pool := NewWorkerPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errs := pool.RunAll(ctx, func() error { return nil })

	assert.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestWorkerPool_MinimumWorkerCount(t *testing.T) {
	pool := NewWorkerPool(0)
	err := pool.Run(context.Background(), func() error { return nil })
	assert.NoError(t, err)
}
