// Copyright 2024 The GraphCypher Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Limits holds the resource caps from §5: row cap without LIMIT,
// var-length expansion depth, and parser recursion depth.
type Limits struct {
	MaxRowsWithoutLimit int
	MaxExpandDepth      int
	MaxParserDepth      int
}

// DefaultLimits returns the defaults named in §5.
func DefaultLimits() Limits {
	return Limits{
		MaxRowsWithoutLimit: 10000,
		MaxExpandDepth:      15,
		MaxParserDepth:      64,
	}
}

// Context threads the execution-context struct described in §9 (no
// global mutable graph pointer) through the planner and executor. It
// carries the cancellation flag, a logger, and the resource limits for
// one query execution.
type Context struct {
	context.Context
	Log        *logrus.Entry
	Limits     Limits
	cancelled  atomic.Bool
	rowBudget  int64
	hasLimit   bool
}

// NewContext wraps a context.Context with default limits and the given
// logger (the logrus standard logger when log is nil), mirroring the
// teacher's sql.NewContext.
func NewContext(parent context.Context, log *logrus.Entry) *Context {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Context{Context: parent, Log: log, Limits: DefaultLimits()}
}

// NewEmptyContext builds a Context over context.Background(), used by
// tests and by EXPLAIN, which never touches cancellable resources.
func NewEmptyContext() *Context {
	return NewContext(context.Background(), nil)
}

// Cancel sets the cancellation flag for this execution context. The
// next Next() call on any iterator in the tree observes it.
func (c *Context) Cancel() { c.cancelled.Store(true) }

// CheckCancelled returns ErrCancelled if the flag is set or the parent
// context.Context has been cancelled/deadlined.
func (c *Context) CheckCancelled() error {
	if c.cancelled.Load() {
		return ErrCancelled.New()
	}
	select {
	case <-c.Context.Done():
		return c.Context.Err()
	default:
		return nil
	}
}

// MarkHasExplicitLimit marks this context as executing a query that
// carries an explicit LIMIT clause, disabling the row cap in §5.
func (c *Context) MarkHasExplicitLimit() { c.hasLimit = true }

// HasExplicitLimit reports whether MarkHasExplicitLimit was called.
func (c *Context) HasExplicitLimit() bool { return c.hasLimit }
