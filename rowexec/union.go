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

package rowexec

import (
	"io"

	"github.com/cypherdb/graphengine/core"
)

// unionIter concatenates branch iterators; when All is false it
// deduplicates across the whole combined stream (UNION semantics).
type unionIter struct {
	branches []BindingIter
	all      bool
	cur      int

	rows  []core.Binding
	pos   int
	built bool
}

func newUnionIter(branches []BindingIter, all bool) *unionIter {
	return &unionIter{branches: branches, all: all}
}

func (it *unionIter) Next(ctx *core.Context) (core.Binding, error) {
	if it.all {
		return it.nextAll(ctx)
	}
	if !it.built {
		if err := it.build(ctx); err != nil {
			return nil, err
		}
	}
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	b := it.rows[it.pos]
	it.pos++
	return b, nil
}

func (it *unionIter) nextAll(ctx *core.Context) (core.Binding, error) {
	for it.cur < len(it.branches) {
		b, err := it.branches[it.cur].Next(ctx)
		if err == io.EOF {
			it.cur++
			continue
		}
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, io.EOF
}

func (it *unionIter) build(ctx *core.Context) error {
	seen := make(map[string]bool)
	for _, br := range it.branches {
		rows, err := drainAll(ctx, br)
		if err != nil {
			return err
		}
		for _, b := range rows {
			key := bindingKey(b)
			if seen[key] {
				continue
			}
			seen[key] = true
			it.rows = append(it.rows, b)
		}
	}
	it.built = true
	return nil
}

func (it *unionIter) Close(ctx *core.Context) error {
	var first error
	for _, br := range it.branches {
		if err := br.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
