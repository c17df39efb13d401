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

import "io"

// RowIter is the volcano-model iterator contract from §4.7: Next is
// pulled on demand and returns io.EOF when exhausted; Close is
// idempotent teardown called on every termination path. Open is
// performed by the constructor that builds a RowIter, mirroring the
// teacher's convention that a fresh iterator is already "open".
type RowIter interface {
	Next(ctx *Context) (Row, error)
	Close(ctx *Context) error
}

type sliceRowIter struct {
	rows []Row
	pos  int
}

// RowsToRowIter adapts a materialized row slice into a RowIter, used by
// blocking operators (Sort, Aggregation, Distinct) once their child has
// been fully drained.
func RowsToRowIter(rows ...Row) RowIter {
	return &sliceRowIter{rows: rows}
}

func (it *sliceRowIter) Next(ctx *Context) (Row, error) {
	if err := ctx.CheckCancelled(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	row := it.rows[it.pos]
	it.pos++
	return row, nil
}

func (it *sliceRowIter) Close(ctx *Context) error { return nil }

// RowIterToRows drains an iterator to completion, closing it on every
// exit path (success or error).
func RowIterToRows(ctx *Context, iter RowIter) ([]Row, error) {
	var rows []Row
	for {
		row, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = iter.Close(ctx)
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, iter.Close(ctx)
}
