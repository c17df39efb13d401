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
	"github.com/cypherdb/graphengine/eval"
	"github.com/cypherdb/graphengine/plan"
)

// projectionIter evaluates each item against the input binding and
// returns a binding containing exactly the projected aliases (WITH and
// RETURN both narrow scope to their projection list per §4.5).
type projectionIter struct {
	in        BindingIter
	items     []plan.ProjectItem
	evaluator *eval.Evaluator
}

func newProjectionIter(in BindingIter, items []plan.ProjectItem, evaluator *eval.Evaluator) *projectionIter {
	return &projectionIter{in: in, items: items, evaluator: evaluator}
}

func (it *projectionIter) Next(ctx *core.Context) (core.Binding, error) {
	b, err := it.in.Next(ctx)
	if err != nil {
		return nil, err
	}
	return it.project(ctx, b)
}

func (it *projectionIter) project(ctx *core.Context, b core.Binding) (core.Binding, error) {
	out := make(core.Binding, len(it.items))
	for _, item := range it.items {
		v, err := it.evaluator.Eval(ctx, item.Expr, b)
		if err != nil {
			return nil, err
		}
		out[item.Alias] = v
	}
	return out, nil
}

func (it *projectionIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }

// aggregationIter groups the (materialized) input by GroupKeys and
// computes one Aggregator per AggregateItem per group (§4.4: grouping
// keys are every non-aggregate projection item; an aggregate with no
// explicit grouping key aggregates the whole input into one row).
type aggregationIter struct {
	in         BindingIter
	groupKeys  []plan.ProjectItem
	aggregates []plan.AggregateItem
	evaluator  *eval.Evaluator

	results []core.Binding
	pos     int
	built   bool
}

func newAggregationIter(in BindingIter, groupKeys []plan.ProjectItem, aggregates []plan.AggregateItem, evaluator *eval.Evaluator) *aggregationIter {
	return &aggregationIter{in: in, groupKeys: groupKeys, aggregates: aggregates, evaluator: evaluator}
}

type groupState struct {
	keyValues []core.Value
	aggs      []eval.Aggregator
}

func (it *aggregationIter) build(ctx *core.Context) error {
	rows, err := drainAll(ctx, it.in)
	if err != nil {
		return err
	}
	order := make([]string, 0)
	groups := make(map[string]*groupState)

	for _, b := range rows {
		keyVals := make([]core.Value, len(it.groupKeys))
		for i, k := range it.groupKeys {
			v, err := it.evaluator.Eval(ctx, k.Expr, b)
			if err != nil {
				return err
			}
			keyVals[i] = v
		}
		key := groupKeyString(keyVals)
		g, ok := groups[key]
		if !ok {
			aggs := make([]eval.Aggregator, len(it.aggregates))
			for i, a := range it.aggregates {
				if a.Star {
					aggs[i] = eval.NewCountStarAggregator()
					continue
				}
				agg, err := eval.NewAggregator(a.Func, a.Distinct)
				if err != nil {
					return err
				}
				aggs[i] = agg
			}
			g = &groupState{keyValues: keyVals, aggs: aggs}
			groups[key] = g
			order = append(order, key)
		}
		for i, a := range it.aggregates {
			var v core.Value
			if a.Star {
				v = core.Int(0) // countStarAggregator ignores the value
			} else {
				var err error
				v, err = it.evaluator.Eval(ctx, a.Arg, b)
				if err != nil {
					return err
				}
			}
			if err := g.aggs[i].Accumulate(v); err != nil {
				return err
			}
		}
	}

	if len(groups) == 0 && len(it.groupKeys) == 0 {
		// An aggregate over zero input rows still produces one row
		// (e.g. count(*) over an empty match is 0, not no rows).
		aggs := make([]eval.Aggregator, len(it.aggregates))
		for i, a := range it.aggregates {
			if a.Star {
				aggs[i] = eval.NewCountStarAggregator()
				continue
			}
			agg, err := eval.NewAggregator(a.Func, a.Distinct)
			if err != nil {
				return err
			}
			aggs[i] = agg
		}
		groups[""] = &groupState{aggs: aggs}
		order = append(order, "")
	}

	it.results = make([]core.Binding, 0, len(order))
	for _, key := range order {
		g := groups[key]
		b := make(core.Binding, len(it.groupKeys)+len(it.aggregates))
		for i, k := range it.groupKeys {
			b[k.Alias] = g.keyValues[i]
		}
		for i, a := range it.aggregates {
			b[a.Alias] = g.aggs[i].Result()
		}
		it.results = append(it.results, b)
	}
	it.built = true
	return nil
}

func groupKeyString(vals []core.Value) string {
	s := ""
	for _, v := range vals {
		s += core.ToJSON(v) + "\x00"
	}
	return s
}

func (it *aggregationIter) Next(ctx *core.Context) (core.Binding, error) {
	if !it.built {
		if err := it.build(ctx); err != nil {
			return nil, err
		}
	}
	if it.pos >= len(it.results) {
		return nil, io.EOF
	}
	b := it.results[it.pos]
	it.pos++
	return b, nil
}

func (it *aggregationIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }

// distinctIter removes duplicate bindings by structural equality over
// every currently bound variable (§4.5 DISTINCT semantics), materializing
// and deduplicating eagerly since later duplicates can appear anywhere
// in the stream.
type distinctIter struct {
	in      BindingIter
	unique  []core.Binding
	pos     int
	built   bool
}

func newDistinctIter(in BindingIter) *distinctIter {
	return &distinctIter{in: in}
}

func (it *distinctIter) build(ctx *core.Context) error {
	rows, err := drainAll(ctx, it.in)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(rows))
	for _, b := range rows {
		key := bindingKey(b)
		if seen[key] {
			continue
		}
		seen[key] = true
		it.unique = append(it.unique, b)
	}
	it.built = true
	return nil
}

func bindingKey(b core.Binding) string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sortStrings(keys)
	s := ""
	for _, k := range keys {
		s += k + "=" + core.ToJSON(b[k]) + "\x00"
	}
	return s
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

func (it *distinctIter) Next(ctx *core.Context) (core.Binding, error) {
	if !it.built {
		if err := it.build(ctx); err != nil {
			return nil, err
		}
	}
	if it.pos >= len(it.unique) {
		return nil, io.EOF
	}
	b := it.unique[it.pos]
	it.pos++
	return b, nil
}

func (it *distinctIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }

// sortIter materializes the input and re-emits it ordered by Items,
// stably (Testable Property 9: ties preserve input order).
type sortIter struct {
	in        BindingIter
	items     []plan.SortItem
	evaluator *eval.Evaluator
	rows      []core.Binding
	pos       int
	built     bool
}

func newSortIter(in BindingIter, items []plan.SortItem, evaluator *eval.Evaluator) *sortIter {
	return &sortIter{in: in, items: items, evaluator: evaluator}
}

func (it *sortIter) build(ctx *core.Context) error {
	rows, err := drainAll(ctx, it.in)
	if err != nil {
		return err
	}
	type keyed struct {
		b    core.Binding
		keys []core.Value
	}
	entries := make([]keyed, len(rows))
	for i, b := range rows {
		keys := make([]core.Value, len(it.items))
		for j, item := range it.items {
			v, err := it.evaluator.Eval(ctx, item.Expr, b)
			if err != nil {
				return err
			}
			keys[j] = v
		}
		entries[i] = keyed{b: b, keys: keys}
	}
	less := func(a, b keyed) bool {
		for i, item := range it.items {
			va, vb := a.keys[i], b.keys[i]
			if va.IsNull() && vb.IsNull() {
				continue
			}
			if va.IsNull() {
				return false
			}
			if vb.IsNull() {
				return true
			}
			cmp, isNull, err := va.Compare(vb)
			if err != nil || isNull || cmp == 0 {
				continue
			}
			if item.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	}
	// Stable insertion sort: n is bounded by a materialized result set,
	// never the full unbounded graph, so O(n^2) is acceptable here.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && less(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	it.rows = make([]core.Binding, len(entries))
	for i, e := range entries {
		it.rows[i] = e.b
	}
	it.built = true
	return nil
}

func (it *sortIter) Next(ctx *core.Context) (core.Binding, error) {
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

func (it *sortIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }

// skipIter drops the first N rows, non-blocking.
type skipIter struct {
	in      BindingIter
	n       int64
	skipped int64
}

func newSkipIter(in BindingIter, n int64) *skipIter {
	return &skipIter{in: in, n: n}
}

func (it *skipIter) Next(ctx *core.Context) (core.Binding, error) {
	for it.skipped < it.n {
		if _, err := it.in.Next(ctx); err != nil {
			return nil, err
		}
		it.skipped++
	}
	return it.in.Next(ctx)
}

func (it *skipIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }

// limitIter caps the output at N rows, non-blocking, and is the only
// operator allowed to short-circuit its child before EOF.
type limitIter struct {
	in    BindingIter
	n     int64
	count int64
}

func newLimitIter(in BindingIter, n int64) *limitIter {
	return &limitIter{in: in, n: n}
}

func (it *limitIter) Next(ctx *core.Context) (core.Binding, error) {
	if it.count >= it.n {
		return nil, io.EOF
	}
	b, err := it.in.Next(ctx)
	if err != nil {
		return nil, err
	}
	it.count++
	return b, nil
}

func (it *limitIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }
