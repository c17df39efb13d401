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

// Package rowexec implements the volcano-model executor from §4.7: a
// tree of pull-based iterators, one per physical operator, each
// exposing Next(ctx)(Binding, error) and an idempotent Close. io.EOF
// marks exhaustion, mirroring core.RowIter's contract one level below
// the final projection into result rows.
package rowexec

import (
	"io"

	"github.com/cypherdb/graphengine/core"
)

// BindingIter is the iterator contract operators use internally, one
// level above core.RowIter: it carries the full variable environment
// for a row rather than a fixed positional schema, since most of the
// pipeline (scans, expands, filters, joins) doesn't know the final
// projected column list.
type BindingIter interface {
	Next(ctx *core.Context) (core.Binding, error)
	Close(ctx *core.Context) error
}

// sliceBindingIter adapts a materialized slice to BindingIter. The
// blocking operators (Sort, Aggregation, Distinct, HashJoin) keep their
// drained rows in their own slices and do not use it.
type sliceBindingIter struct {
	rows []core.Binding
	pos  int
}

func newSliceBindingIter(rows []core.Binding) *sliceBindingIter {
	return &sliceBindingIter{rows: rows}
}

func (it *sliceBindingIter) Next(ctx *core.Context) (core.Binding, error) {
	if err := ctx.CheckCancelled(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	b := it.rows[it.pos]
	it.pos++
	return b, nil
}

func (it *sliceBindingIter) Close(ctx *core.Context) error { return nil }

// drainAll pulls every row from iter, closing it on every exit path.
// Used by blocking operators to materialize their child.
func drainAll(ctx *core.Context, iter BindingIter) ([]core.Binding, error) {
	var out []core.Binding
	for {
		b, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = iter.Close(ctx)
			return nil, err
		}
		out = append(out, b)
	}
	return out, iter.Close(ctx)
}

// capCheck enforces §5's "no LIMIT => at most MaxRowsWithoutLimit rows"
// safety valve. count is the number of rows produced so far by the
// operator guarding the cap (typically the outermost non-blocking
// operator feeding the final projection).
func capCheck(ctx *core.Context, count int) error {
	if ctx.HasExplicitLimit() {
		return nil
	}
	if count > ctx.Limits.MaxRowsWithoutLimit {
		return core.ErrRowLimitExceeded.New(ctx.Limits.MaxRowsWithoutLimit)
	}
	return nil
}
