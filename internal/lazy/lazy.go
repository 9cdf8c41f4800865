// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lazy provides a write-once cell that is filled on the first
// successful initialization. Unlike sync.Once a failed initialization
// leaves the cell empty, so a later call may try again.
package lazy

import (
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Value holds a T that is computed at most once successfully.
// The zero Value is empty and ready to use. A Value must not be
// copied after first use.
type Value[T any] struct {
	done   atomic.Bool
	flight singleflight.Group
	value  T
}

// Get returns the cached value, calling init to compute it if the cell
// is still empty. Callers racing on an empty cell share one call to init
// and all observe its value, or its error. Errors are not cached.
func (v *Value[T]) Get(init func() (T, error)) (T, error) {
	if v.done.Load() {
		return v.value, nil
	}

	res, err, _ := v.flight.Do("", func() (interface{}, error) {
		if v.done.Load() {
			return v.value, nil
		}
		value, err := init()
		if err != nil {
			return nil, err
		}
		v.value = value
		v.done.Store(true)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Peek returns the cached value and whether the cell has been filled.
// It never triggers initialization.
func (v *Value[T]) Peek() (T, bool) {
	if v.done.Load() {
		return v.value, true
	}
	var zero T
	return zero, false
}
