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

// Package graphcypher is the embeddable Cypher query engine: a
// self-contained lexer/parser/planner/executor pipeline over a
// property-graph storage adapter, structured after the teacher's
// Engine/Config/Query surface (see engine.go's New/Query in the
// retrieval pack this module was built from).
package graphcypher

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cypherdb/graphengine/ast"
	"github.com/cypherdb/graphengine/core"
	"github.com/cypherdb/graphengine/optimize"
	"github.com/cypherdb/graphengine/plan"
	"github.com/cypherdb/graphengine/rowexec"
	"github.com/cypherdb/graphengine/schema"
	"github.com/cypherdb/graphengine/storage"
)

// Config holds the Engine's tunables. A zero Limits value is replaced
// by core.DefaultLimits(), and a nil Logger by the logrus standard
// logger.
type Config struct {
	Limits core.Limits
	Logger *logrus.Logger
}

// Engine ties together the storage adapter, schema tracker, and
// pipeline stages behind a single Query entry point, mirroring the
// teacher's top-level Engine (Analyzer + Catalog) wired through one
// Query method.
type Engine struct {
	Store   *storage.GraphStore
	Tracker *schema.Tracker
	Limits  core.Limits
	Log     *logrus.Logger
}

// New creates an Engine over a fresh, empty GraphStore. Use NewWithStore
// to attach an existing one (e.g. for tests that pre-populate data).
func New(cfg *Config) *Engine {
	return NewWithStore(storage.New(), cfg)
}

// NewWithStore creates an Engine over an existing GraphStore.
func NewWithStore(store *storage.GraphStore, cfg *Config) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	limits := cfg.Limits
	if limits == (core.Limits{}) {
		limits = core.DefaultLimits()
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{Store: store, Tracker: schema.NewTracker(), Limits: limits, Log: log}
}

// Result is the outcome of Query: an ordered column schema and the
// materialized result rows.
type Result struct {
	Schema core.Schema
	Rows   []core.Row
}

// Query parses, plans, optimizes, and executes one Cypher statement,
// returning its result schema and rows. Mutations (CREATE/MERGE/SET/
// REMOVE/DELETE) apply directly against the Engine's GraphStore; the
// host is responsible for wrapping Query in its own statement-level
// transaction boundary (§4.8: "atomic with respect to the host's
// surrounding transaction").
func (e *Engine) Query(ctx *core.Context, query string, params map[string]core.Value) (*Result, error) {
	if ctx == nil {
		ctx = core.NewContext(context.Background(), logrus.NewEntry(e.Log))
	}
	ctx.Limits = e.Limits

	q, err := ast.Parse(query, e.Limits.MaxParserDepth)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	logical, err := plan.Build(q)
	if err != nil {
		return nil, errors.Wrap(err, "plan")
	}

	if err := e.Tracker.EnsureInitialized(ctx, e.Store); err != nil {
		return nil, errors.Wrap(err, "schema tracker")
	}
	phys := optimize.Plan(logical, e.Tracker, e.Limits)
	if len(phys.Cartesian) > 0 {
		ctx.Log.Debug("query plan contains a cartesian product; consider relating the disjoint patterns")
	}

	columns := outputColumns(q, logical)
	rows, outSchema, err := rowexec.Run(ctx, phys, e.Store, params, columns)
	if err != nil {
		return nil, errors.Wrap(err, "execute")
	}

	if mutates(q) {
		if err := e.Tracker.Rebuild(ctx, e.Store); err != nil {
			return nil, errors.Wrap(err, "schema tracker rebuild")
		}
	}

	return &Result{Schema: outSchema, Rows: rows}, nil
}

// Explain plans (but does not execute) query, returning a line-per-
// operator textual rendering of the physical plan for diagnostics.
func (e *Engine) Explain(ctx *core.Context, query string) (string, error) {
	if ctx == nil {
		ctx = core.NewEmptyContext()
	}
	q, err := ast.Parse(query, e.Limits.MaxParserDepth)
	if err != nil {
		return "", errors.Wrap(err, "parse")
	}
	logical, err := plan.Build(q)
	if err != nil {
		return "", errors.Wrap(err, "plan")
	}
	if err := e.Tracker.EnsureInitialized(ctx, e.Store); err != nil {
		return "", errors.Wrap(err, "schema tracker")
	}
	phys := optimize.Plan(logical, e.Tracker, e.Limits)
	return explainText(phys.Root, phys.Cost, 0), nil
}

// outputColumns derives the final column order for a query: the
// projection aliases of the first single query's RETURN when that is
// its last clause, otherwise the variables bound by the logical plan.
func outputColumns(q *ast.Query, logical plan.Operator) []string {
	sq := q.First
	if len(sq.Clauses) > 0 {
		if r, ok := sq.Clauses[len(sq.Clauses)-1].(*ast.Return); ok {
			names := make([]string, len(r.Items))
			for i, it := range r.Items {
				alias := it.Alias
				if alias == "" {
					alias = exprAlias(it.Expr)
				}
				names[i] = alias
			}
			return names
		}
	}
	return logical.Variables()
}

func exprAlias(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Identifier:
		return n.Name
	case *ast.Property:
		return exprAlias(n.Target) + "." + n.Property
	case *ast.FunctionCall:
		return n.Name
	default:
		return "expr"
	}
}

// mutates reports whether query contains a clause that writes to the
// graph, used to decide whether the schema tracker needs a rebuild.
func mutates(q *ast.Query) bool {
	for _, c := range q.First.Clauses {
		switch c.(type) {
		case *ast.Create, *ast.Merge, *ast.SetClause, *ast.RemoveClause, *ast.DeleteClause:
			return true
		}
	}
	return false
}

func explainText(op plan.Operator, cost map[plan.Operator]optimize.Cost, depth int) string {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	c := cost[op]
	line := indent + operatorName(op) + rowsSuffix(c)
	for _, child := range op.Children() {
		line += "\n" + explainText(child, cost, depth+1)
	}
	return line
}

func rowsSuffix(c optimize.Cost) string {
	if c.EstimatedRows == 0 && c.RelativeWork == 0 {
		return ""
	}
	return " (~rows)"
}

func operatorName(op plan.Operator) string {
	switch op.(type) {
	case *plan.UnitScan:
		return "UnitScan"
	case *plan.AllNodesScan:
		return "AllNodesScan"
	case *plan.LabelScan:
		return "LabelScan"
	case *plan.AllRelationshipsScan:
		return "AllRelationshipsScan"
	case *plan.TypeScan:
		return "TypeScan"
	case *plan.Expand:
		return "Expand"
	case *plan.VarLengthExpand:
		return "VarLengthExpand"
	case *plan.Filter:
		return "Filter"
	case *plan.HashJoin:
		return "HashJoin"
	case *plan.CartesianProduct:
		return "CartesianProduct"
	case *plan.Projection:
		return "Projection"
	case *plan.Aggregation:
		return "Aggregation"
	case *plan.Distinct:
		return "Distinct"
	case *plan.Sort:
		return "Sort"
	case *plan.Skip:
		return "Skip"
	case *plan.Limit:
		return "Limit"
	case *plan.Create:
		return "Create"
	case *plan.Merge:
		return "Merge"
	case *plan.SetProperties:
		return "SetProperties"
	case *plan.RemoveProperties:
		return "RemoveProperties"
	case *plan.Delete:
		return "Delete"
	case *plan.SetUnion:
		return "SetUnion"
	default:
		return "Unknown"
	}
}
