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

package fherrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSpan_AttachesAndExtracts(t *testing.T) {
	base := ErrUnknownFunction.New("frobnicate")
	span := SourceSpan{Text: "frobnicate()", Line: 1, Column: 5}
	wrapped := WithSpan(base, span)

	assert.True(t, ErrUnknownFunction.Is(wrapped))
	got, ok := Span(wrapped)
	assert.True(t, ok)
	assert.Equal(t, span, got)
	assert.Contains(t, wrapped.Error(), "frobnicate()")
}

func TestWithSpan_NilError(t *testing.T) {
	assert.Nil(t, WithSpan(nil, SourceSpan{}))
}

func TestSpan_AbsentOnPlainError(t *testing.T) {
	_, ok := Span(ErrEmptyExpression.New())
	assert.False(t, ok)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrPoolExhausted.New()))
	assert.True(t, Retryable(ErrPoolBroken.New("reset")))
	assert.True(t, Retryable(ErrPoolTimeout.New()))
	assert.False(t, Retryable(ErrExecution.New("syntax error")))
	assert.False(t, Retryable(ErrUnknownFunction.New("foo")))
}
