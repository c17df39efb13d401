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

package eval

import (
	"strings"

	"github.com/cypherdb/graphengine/core"
)

// Aggregator accumulates one aggregate function's state across a group
// of input values, ignoring NULLs per §4.4 ("aggregates ignore NULL
// inputs"), and produces the final Value on Result().
type Aggregator interface {
	Accumulate(v core.Value) error
	Result() core.Value
}

// NewAggregator returns a fresh accumulator for the named built-in
// aggregate function (count, sum, avg, min, max, collect).
func NewAggregator(name string, distinct bool) (Aggregator, error) {
	base, err := newBaseAggregator(strings.ToLower(name))
	if err != nil {
		return nil, err
	}
	if distinct {
		return &distinctAggregator{inner: base, seen: map[string]bool{}}, nil
	}
	return base, nil
}

func newBaseAggregator(name string) (Aggregator, error) {
	switch name {
	case "count":
		return &countAggregator{}, nil
	case "sum":
		return &sumAggregator{}, nil
	case "avg":
		return &avgAggregator{}, nil
	case "min":
		return &minMaxAggregator{wantMin: true}, nil
	case "max":
		return &minMaxAggregator{wantMin: false}, nil
	case "collect":
		return &collectAggregator{}, nil
	default:
		return nil, core.ErrUndefinedFunction.New(name)
	}
}

type countAggregator struct{ n int64 }

func (a *countAggregator) Accumulate(v core.Value) error {
	if !v.IsNull() {
		a.n++
	}
	return nil
}
func (a *countAggregator) Result() core.Value { return core.Int(a.n) }

// countStarAggregator implements count(*), which counts rows
// regardless of NULL-ness — the Aggregation iterator feeds it a
// non-NULL sentinel for every row.
type countStarAggregator struct{ n int64 }

func (a *countStarAggregator) Accumulate(v core.Value) error {
	a.n++
	return nil
}
func (a *countStarAggregator) Result() core.Value { return core.Int(a.n) }

// NewCountStarAggregator returns the count(*) accumulator, which is not
// reachable through NewAggregator since it never filters NULLs.
func NewCountStarAggregator() Aggregator { return &countStarAggregator{} }

type sumAggregator struct {
	isFloat bool
	i       int64
	f       float64
	any     bool
}

func (a *sumAggregator) Accumulate(v core.Value) error {
	if v.IsNull() {
		return nil
	}
	if !v.IsNumeric() {
		return core.ErrTypeMismatch.New("sum() requires numeric values")
	}
	a.any = true
	if v.Kind() == core.KindFloat {
		a.isFloat = true
	}
	if a.isFloat {
		a.f += v.Float64()
	} else {
		a.i += v.AsInt()
	}
	return nil
}

func (a *sumAggregator) Result() core.Value {
	if !a.any {
		return core.Int(0)
	}
	if a.isFloat {
		return core.Float(a.f + float64(a.i))
	}
	return core.Int(a.i)
}

type avgAggregator struct {
	sum   float64
	count int64
}

func (a *avgAggregator) Accumulate(v core.Value) error {
	if v.IsNull() {
		return nil
	}
	if !v.IsNumeric() {
		return core.ErrTypeMismatch.New("avg() requires numeric values")
	}
	a.sum += v.Float64()
	a.count++
	return nil
}

func (a *avgAggregator) Result() core.Value {
	if a.count == 0 {
		return core.Null()
	}
	return core.Float(a.sum / float64(a.count))
}

type minMaxAggregator struct {
	wantMin bool
	val     core.Value
	set     bool
}

func (a *minMaxAggregator) Accumulate(v core.Value) error {
	if v.IsNull() {
		return nil
	}
	if !a.set {
		a.val = v
		a.set = true
		return nil
	}
	cmp, isNull, err := v.Compare(a.val)
	if err != nil || isNull {
		return err
	}
	if (a.wantMin && cmp < 0) || (!a.wantMin && cmp > 0) {
		a.val = v
	}
	return nil
}

func (a *minMaxAggregator) Result() core.Value {
	if !a.set {
		return core.Null()
	}
	return a.val
}

type collectAggregator struct {
	items []core.Value
}

func (a *collectAggregator) Accumulate(v core.Value) error {
	if v.IsNull() {
		return nil
	}
	a.items = append(a.items, v)
	return nil
}

func (a *collectAggregator) Result() core.Value {
	return core.List(append([]core.Value{}, a.items...))
}

type distinctAggregator struct {
	inner Aggregator
	seen  map[string]bool
}

func (a *distinctAggregator) Accumulate(v core.Value) error {
	key := core.ToJSON(v)
	if a.seen[key] {
		return nil
	}
	a.seen[key] = true
	return a.inner.Accumulate(v)
}

func (a *distinctAggregator) Result() core.Value { return a.inner.Result() }
