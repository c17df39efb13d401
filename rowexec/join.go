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

	"github.com/cypherdb/graphengine/ast"
	"github.com/cypherdb/graphengine/core"
	"github.com/cypherdb/graphengine/eval"
)

// filterIter passes through only bindings where Predicate evaluates to
// the two-valued TRUE (§4.4: NULL and FALSE both exclude the row).
type filterIter struct {
	in        BindingIter
	predicate ast.Expr
	evaluator *eval.Evaluator
}

func newFilterIter(in BindingIter, predicate ast.Expr, evaluator *eval.Evaluator) *filterIter {
	return &filterIter{in: in, predicate: predicate, evaluator: evaluator}
}

func (it *filterIter) Next(ctx *core.Context) (core.Binding, error) {
	for {
		b, err := it.in.Next(ctx)
		if err != nil {
			return nil, err
		}
		v, err := it.evaluator.Eval(ctx, it.predicate, b)
		if err != nil {
			return nil, err
		}
		if eval.IsTruthy(v) {
			return b, nil
		}
	}
}

func (it *filterIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }

// hashJoinIter materializes the build (left) side into a hash table
// keyed by its JoinVars values on Open (here: lazily, on first Next),
// then probes it once per right-side row (§4.7: "the build side is
// materialized once; the probe side streams").
type hashJoinIter struct {
	left, right BindingIter
	joinVars    []string

	table      map[string][]core.Binding
	built      bool
	curMatches []core.Binding
	curI       int
	curProbe   core.Binding
}

func newHashJoinIter(left, right BindingIter, joinVars []string) *hashJoinIter {
	return &hashJoinIter{left: left, right: right, joinVars: joinVars}
}

func (it *hashJoinIter) build(ctx *core.Context) error {
	rows, err := drainAll(ctx, it.left)
	if err != nil {
		return err
	}
	it.table = make(map[string][]core.Binding, len(rows))
	for _, b := range rows {
		key := joinKey(b, it.joinVars)
		it.table[key] = append(it.table[key], b)
	}
	it.built = true
	return nil
}

func (it *hashJoinIter) Next(ctx *core.Context) (core.Binding, error) {
	if !it.built {
		if err := it.build(ctx); err != nil {
			return nil, err
		}
	}
	for {
		if it.curI < len(it.curMatches) {
			m := it.curMatches[it.curI]
			it.curI++
			return m.Merge(it.curProbe), nil
		}
		probe, err := it.right.Next(ctx)
		if err != nil {
			return nil, err
		}
		it.curProbe = probe
		it.curMatches = it.table[joinKey(probe, it.joinVars)]
		it.curI = 0
	}
}

func joinKey(b core.Binding, vars []string) string {
	key := ""
	for _, v := range vars {
		val, ok := b[v]
		if !ok {
			key += "\x00absent\x00"
			continue
		}
		key += core.ToJSON(val) + "\x00"
	}
	return key
}

func (it *hashJoinIter) Close(ctx *core.Context) error {
	errLeft := it.left.Close(ctx)
	errRight := it.right.Close(ctx)
	if errLeft != nil {
		return errLeft
	}
	return errRight
}

// cartesianIter pairs every left row with every right row; the
// physical planner tags these operators since they're the quadratic
// fallback when no shared variable links two patterns (§4.6).
type cartesianIter struct {
	leftRows []core.Binding
	leftI    int
	right    BindingIter
	rightFactory func() (BindingIter, error)
	cur      BindingIter
}

// newCartesianIter materializes the left side once and re-opens the
// right side (via rightFactory) for every left row, since the right
// iterator can only be drained once.
func newCartesianIter(ctx *core.Context, left BindingIter, rightFactory func() (BindingIter, error)) (*cartesianIter, error) {
	leftRows, err := drainAll(ctx, left)
	if err != nil {
		return nil, err
	}
	return &cartesianIter{leftRows: leftRows, rightFactory: rightFactory}, nil
}

func (it *cartesianIter) Next(ctx *core.Context) (core.Binding, error) {
	for {
		if it.cur == nil {
			if it.leftI >= len(it.leftRows) {
				return nil, io.EOF
			}
			r, err := it.rightFactory()
			if err != nil {
				return nil, err
			}
			it.cur = r
		}
		rb, err := it.cur.Next(ctx)
		if err == io.EOF {
			_ = it.cur.Close(ctx)
			it.cur = nil
			it.leftI++
			continue
		}
		if err != nil {
			return nil, err
		}
		return it.leftRows[it.leftI].Merge(rb), nil
	}
}

func (it *cartesianIter) Close(ctx *core.Context) error {
	if it.cur != nil {
		return it.cur.Close(ctx)
	}
	return nil
}
