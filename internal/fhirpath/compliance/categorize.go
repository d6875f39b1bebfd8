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

package compliance

import (
	"strings"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

// Category is one of the nine failure buckets from spec.md §4.6 step 4.
type Category string

const (
	CategorySemanticValidation Category = "semantic_validation"
	CategoryBinder             Category = "binder"
	CategoryInvalidInput       Category = "invalid_input"
	CategoryResultLogic        Category = "result_logic"
	CategoryEmptyResult        Category = "empty_result"
	CategoryConversion         Category = "conversion"
	CategoryFunctionSignature  Category = "function_signature"
	CategoryTranslation        Category = "translation"
	CategoryUncategorized      Category = "uncategorized"
)

// Categorize maps a failure's error to one of the nine buckets, following
// the original implementation's message-fragment matching table
// (work/categorize_failures.py, per SPEC_FULL.md §9 item 2) rather than
// inventing a fresh taxonomy. Order
// matters: more specific rules are checked before the generic ones.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUncategorized
	}
	msg := strings.ToLower(err.Error())

	switch {
	case fherrors.ErrMissingExpectedFailure.Is(err):
		return CategorySemanticValidation
	case fherrors.ErrEmptyExpression.Is(err),
		fherrors.ErrUnterminatedComment.Is(err),
		fherrors.ErrNestedComment.Is(err),
		fherrors.ErrStrayCommentClose.Is(err),
		fherrors.ErrUnbalancedDelimiter.Is(err),
		fherrors.ErrTailTruncated.Is(err),
		fherrors.ErrSyntax.Is(err):
		return CategoryInvalidInput
	case fherrors.ErrUnknownFunction.Is(err), fherrors.ErrWrongArity.Is(err):
		return CategoryFunctionSignature
	case fherrors.ErrUnknownType.Is(err), fherrors.ErrUnsupportedOperator.Is(err):
		return CategoryTranslation
	case fherrors.ErrMissingDialectPrimitive.Is(err):
		return CategoryBinder
	case fherrors.ErrResultShapeMismatch.Is(err):
		return CategoryResultLogic
	case fherrors.ErrValueMismatch.Is(err):
		if strings.Contains(msg, "empty") {
			return CategoryEmptyResult
		}
		return CategoryResultLogic
	case fherrors.ErrExecution.Is(err):
		switch {
		case strings.Contains(msg, "function"), strings.Contains(msg, "argument"):
			return CategoryFunctionSignature
		case strings.Contains(msg, "cast"), strings.Contains(msg, "convert"), strings.Contains(msg, "type"):
			return CategoryConversion
		case strings.Contains(msg, "binder"), strings.Contains(msg, "bind"):
			return CategoryBinder
		default:
			return CategoryTranslation
		}
	case fherrors.ErrPoolExhausted.Is(err), fherrors.ErrPoolBroken.Is(err), fherrors.ErrPoolTimeout.Is(err):
		return CategoryBinder
	case fherrors.ErrASTInvariant.Is(err):
		return CategorySemanticValidation
	default:
		return CategoryUncategorized
	}
}
