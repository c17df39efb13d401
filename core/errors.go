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

// Package core defines the types shared across the Cypher pipeline: the
// runtime value system, rows and schemas, the execution context, the
// graph data model, and the classified error taxonomy.
package core

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

// Category classifies an error into one of the six taxonomy buckets from
// the error-handling design. The numeric ranges match the external
// error-object contract: 1000 SYNTAX, 2000 SEMANTIC, 3000 TYPE,
// 4000 RUNTIME, 5000 CONSTRAINT, 6000 TRANSACTION.
type Category int

const (
	Syntax Category = iota + 1
	Semantic
	Type
	Runtime
	Constraint
	Transaction
)

func (c Category) String() string {
	switch c {
	case Syntax:
		return "SYNTAX"
	case Semantic:
		return "SEMANTIC"
	case Type:
		return "TYPE"
	case Runtime:
		return "RUNTIME"
	case Constraint:
		return "CONSTRAINT"
	case Transaction:
		return "TRANSACTION"
	default:
		return "UNKNOWN"
	}
}

func (c Category) baseCode() int {
	switch c {
	case Syntax:
		return 1000
	case Semantic:
		return 2000
	case Type:
		return 3000
	case Runtime:
		return 4000
	case Constraint:
		return 5000
	case Transaction:
		return 6000
	default:
		return 0
	}
}

// QueryError is the structured error object returned at the query
// surface: category, numeric code, message, and optional source
// location/context slice for parser-originated failures.
type QueryError struct {
	Category Category
	Code     int
	Message  string
	Line     int
	Column   int
	Context  string
	cause    error
}

func (e *QueryError) Error() string {
	if e.Line > 0 {
		return e.Category.String() + ": " + e.Message
	}
	return e.Category.String() + ": " + e.Message
}

func (e *QueryError) Unwrap() error { return e.cause }

// Kind wraps a go-errors.v1 Kind with its taxonomy category, mirroring
// the teacher's ErrXxx = errors.NewKind("...") declarations.
type Kind struct {
	category Category
	offset   int
	kind     *errors.Kind
}

func newKind(category Category, offset int, message string) *Kind {
	return &Kind{category: category, offset: offset, kind: errors.NewKind(message)}
}

// New instantiates an error of this kind with the given format
// arguments, as a *QueryError carrying the kind's category and code.
func (k *Kind) New(args ...interface{}) *QueryError {
	return &QueryError{
		Category: k.category,
		Code:     k.category.baseCode() + k.offset,
		Message:  k.kind.New(args...).Error(),
		cause:    k.kind.New(args...),
	}
}

// Is reports whether err was produced by this kind.
func (k *Kind) Is(err error) bool {
	if qe, ok := err.(*QueryError); ok {
		err = qe.cause
	}
	return k.kind.Is(err)
}

// AtLocation attaches a source line/column/context slice to a freshly
// constructed error, used by the parser and lexer.
func (e *QueryError) AtLocation(line, column int, context string) *QueryError {
	e.Line = line
	e.Column = column
	e.Context = context
	return e
}

// Declared error kinds, one family per taxonomy category. Offsets keep
// codes stable and distinct within a category.
var (
	ErrSyntax           = newKind(Syntax, 1, "syntax error: %s")
	ErrUnterminatedExpr = newKind(Syntax, 2, "unterminated %s")
	ErrRecursionLimit   = newKind(Syntax, 3, "parser recursion limit exceeded (max %d)")

	ErrUndefinedVariable = newKind(Semantic, 1, "undefined variable: %s")
	ErrUndefinedLabel    = newKind(Semantic, 2, "undefined label: %s")
	ErrUndefinedRelType  = newKind(Semantic, 3, "undefined relationship type: %s")
	ErrUndefinedFunction = newKind(Semantic, 4, "undefined function: %s")
	ErrInconsistentVar   = newKind(Semantic, 5, "variable %s is already bound to a different pattern element")
	ErrEmptyQuery        = newKind(Semantic, 6, "empty query")
	ErrWrongArity        = newKind(Semantic, 7, "function %s expects %s arguments, got %d")

	ErrTypeMismatch     = newKind(Type, 1, "type mismatch: %s")
	ErrIncomparableType = newKind(Type, 2, "cannot compare values of type %s and %s")
	ErrNotAList         = newKind(Type, 3, "expected a list, got %s")
	ErrNotAMap          = newKind(Type, 4, "expected a map, got %s")
	ErrRequiredNotNull  = newKind(Type, 5, "argument %d to %s must not be NULL")

	ErrRowLimitExceeded = newKind(Runtime, 1, "result exceeded the maximum of %d rows without a LIMIT clause")
	ErrDepthExceeded    = newKind(Runtime, 2, "variable-length expansion exceeded the maximum depth of %d hops")
	ErrCancelled        = newKind(Runtime, 3, "query cancelled")
	ErrStorageFailure   = newKind(Runtime, 4, "storage adapter failure: %s")

	ErrEndpointMissing   = newKind(Constraint, 1, "edge endpoint %d does not exist")
	ErrNodeHasEdges      = newKind(Constraint, 2, "node %d has %d connected edge(s); use DETACH DELETE to cascade")
	ErrDuplicateNodeID   = newKind(Constraint, 3, "node %d already exists")
	ErrDuplicateEdgeID   = newKind(Constraint, 4, "edge %d already exists")

	ErrTransactionFailed = newKind(Transaction, 1, "host transaction failed: %s")
)
