// Copyright 2024 Joel Montavon.
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

// Package fherrors declares the error taxonomy shared by every layer of the
// compiler: lexer/parser, AST builder, translator, dialects and the pool
// manager. Each taxonomy entry from the design is a distinct errors.Kind so
// callers can test error identity with Is/As instead of string matching.
package fherrors

import (
	stderrors "errors"

	errors "gopkg.in/src-d/go-errors.v1"
)

// Parse-stage kinds.
var (
	ErrEmptyExpression       = errors.NewKind("empty expression")
	ErrUnterminatedComment   = errors.NewKind("unterminated block comment starting at %d:%d")
	ErrNestedComment         = errors.NewKind("nested block comments are not supported (opened again at %d:%d)")
	ErrStrayCommentClose     = errors.NewKind("stray comment terminator at %d:%d")
	ErrUnbalancedDelimiter   = errors.NewKind("unbalanced delimiter %q at %d:%d")
	ErrTailTruncated         = errors.NewKind("expression truncated after recovery at %d:%d")
	ErrSyntax                = errors.NewKind("syntax error at %d:%d: %s")
)

// Translate-stage kinds.
var (
	ErrUnknownFunction      = errors.NewKind("unknown function %q")
	ErrWrongArity           = errors.NewKind("function %q expects %d argument(s), got %d")
	ErrUnknownType          = errors.NewKind("unknown FHIR type %q")
	ErrUnsupportedOperator  = errors.NewKind("operator %q is not supported for operand kind %q")
	ErrMissingDialectPrimitive = errors.NewKind("dialect %q does not implement primitive %q")
)

// AST self-check kind (ast.Validate).
var ErrASTInvariant = errors.NewKind("AST invariant violated: %s")

// CTE assembly kinds.
var (
	ErrEmptyPlan = errors.NewKind("cannot assemble an empty CTE plan")
	ErrCyclicPlan = errors.NewKind("CTE %q references itself or a later entry")
)

// Execution / pool-stage kinds.
var (
	ErrExecution       = errors.NewKind("sql execution failed: %s")
	ErrPoolExhausted   = errors.NewKind("connection pool exhausted")
	ErrPoolBroken      = errors.NewKind("connection broken: %s")
	ErrPoolTimeout     = errors.NewKind("connection acquire timed out")
)

// Compliance validation-only kinds.
var (
	ErrResultShapeMismatch = errors.NewKind("expected %s, got %s")
	ErrValueMismatch       = errors.NewKind("value mismatch: expected %v, got %v")
	ErrMissingExpectedFailure = errors.NewKind("test declared invalid=%q but translation/execution succeeded")
)

// SourceSpan is attached to parse/translate errors so callers can report the
// offending slice of the original expression text.
type SourceSpan struct {
	Text   string
	Line   int
	Column int
}

// WithSpan wraps err with source-span context without losing the original
// error's identity for errors.Is/As checks.
func WithSpan(err error, span SourceSpan) error {
	if err == nil {
		return nil
	}
	return &spanError{err: err, span: span}
}

type spanError struct {
	err  error
	span SourceSpan
}

func (e *spanError) Error() string {
	return e.err.Error() + " (near \"" + e.span.Text + "\")"
}

func (e *spanError) Unwrap() error { return e.err }

// Span extracts the SourceSpan attached to err, if any.
func Span(err error) (SourceSpan, bool) {
	var se *spanError
	if stderrors.As(err, &se) {
		return se.span, true
	}
	return SourceSpan{}, false
}

// Retryable reports whether err is a pool/connection error eligible for
// exponential-backoff retry. Query and data errors are never retryable.
func Retryable(err error) bool {
	return ErrPoolExhausted.Is(err) || ErrPoolBroken.Is(err) || ErrPoolTimeout.Is(err)
}
