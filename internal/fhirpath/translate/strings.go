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

package translate

import (
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/ast"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

// visitStringFunction dispatches the string-manipulation and encode/decode
// primitives that pass straight through to a single dialect method once
// their arguments are reduced to scalars, every one of them exercising a
// method from the dialect's closed catalog (spec.md §4.3).
func (t *Translator) visitStringFunction(name string, receiver *result, args []ast.Node, ctx *context) (*result, error) {
	v := t.scalarOf(receiver.sql)

	unary := func(op func(string) string) (*result, error) {
		return &result{sql: t.singleton(op(v)), fhirType: "string"}, nil
	}

	switch name {
	case "upper":
		return unary(t.Dialect.Upper)
	case "lower":
		return unary(t.Dialect.Lower)
	case "trim":
		return unary(t.Dialect.Trim)
	case "toChars":
		return &result{sql: t.Dialect.CharArray(v), fhirType: "string"}, nil
	case "length":
		return &result{sql: t.singleton(t.Dialect.Length(v)), fhirType: "integer"}, nil
	case "split":
		return binaryArray(t, v, args, ctx, t.Dialect.Split)
	case "startsWith":
		return boolBinary(t, name, v, args, ctx, t.Dialect.StartsWith)
	case "endsWith":
		return boolBinary(t, name, v, args, ctx, t.Dialect.EndsWith)
	case "contains":
		return boolBinary(t, name, v, args, ctx, t.Dialect.ContainsSubstring)
	case "matches":
		return boolBinary(t, name, v, args, ctx, t.Dialect.RegexMatch)
	case "replaceMatches":
		return replaceMatches(t, name, v, args, ctx)
	case "substring":
		return substring(t, name, v, args, ctx)
	case "encode":
		return encodeDecode(t, name, v, args, ctx, true)
	case "decode":
		return encodeDecode(t, name, v, args, ctx, false)
	case "escape":
		return escapeUnescape(t, name, v, args, ctx, true)
	case "unescape":
		return escapeUnescape(t, name, v, args, ctx, false)
	}
	return nil, fherrors.ErrUnknownFunction.New(name)
}

func binaryArray(t *Translator, v string, args []ast.Node, ctx *context, op func(a, b string) string) (*result, error) {
	if len(args) != 1 {
		return nil, fherrors.ErrWrongArity.New("split", 1, len(args))
	}
	arg, err := t.visit(args[0], ctx)
	if err != nil {
		return nil, err
	}
	return &result{sql: op(v, t.scalarOf(arg.sql)), fhirType: "string"}, nil
}

func boolBinary(t *Translator, name, v string, args []ast.Node, ctx *context, op func(a, b string) string) (*result, error) {
	if len(args) != 1 {
		return nil, fherrors.ErrWrongArity.New(name, 1, len(args))
	}
	arg, err := t.visit(args[0], ctx)
	if err != nil {
		return nil, err
	}
	return &result{sql: t.singleton(op(v, t.scalarOf(arg.sql))), fhirType: "boolean"}, nil
}

func replaceMatches(t *Translator, name, v string, args []ast.Node, ctx *context) (*result, error) {
	if len(args) != 2 {
		return nil, fherrors.ErrWrongArity.New(name, 2, len(args))
	}
	pattern, err := t.visit(args[0], ctx)
	if err != nil {
		return nil, err
	}
	replacement, err := t.visit(args[1], ctx)
	if err != nil {
		return nil, err
	}
	sql := t.Dialect.RegexReplace(v, t.scalarOf(pattern.sql), t.scalarOf(replacement.sql))
	return &result{sql: t.singleton(sql), fhirType: "string"}, nil
}

func substring(t *Translator, name, v string, args []ast.Node, ctx *context) (*result, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fherrors.ErrWrongArity.New(name, 1, len(args))
	}
	start, err := t.visit(args[0], ctx)
	if err != nil {
		return nil, err
	}
	length := "NULL"
	if len(args) == 2 {
		l, err := t.visit(args[1], ctx)
		if err != nil {
			return nil, err
		}
		length = t.scalarOf(l.sql)
	}
	// FHIRPath indexes from 0; SQL SUBSTRING is 1-based.
	sql := t.Dialect.Substring(v, add1(t.scalarOf(start.sql)), length)
	return &result{sql: t.singleton(sql), fhirType: "string"}, nil
}

func add1(expr string) string { return "(" + expr + " + 1)" }

func encodeDecode(t *Translator, name, v string, args []ast.Node, ctx *context, encode bool) (*result, error) {
	if len(args) != 1 {
		return nil, fherrors.ErrWrongArity.New(name, 1, len(args))
	}
	format, err := literalString(args[0])
	if err != nil {
		return nil, err
	}
	var sql string
	switch format {
	case "base64":
		if encode {
			sql = t.Dialect.Base64Encode(v)
		} else {
			sql = t.Dialect.Base64Decode(v)
		}
	case "urlbase64":
		if encode {
			sql = t.Dialect.URLBase64Encode(v)
		} else {
			sql = t.Dialect.URLBase64Decode(v)
		}
	case "hex":
		if encode {
			sql = t.Dialect.HexEncode(v)
		} else {
			sql = t.Dialect.HexDecode(v)
		}
	default:
		return nil, fherrors.ErrUnknownFunction.New(name + "(" + format + ")")
	}
	return &result{sql: t.singleton(sql), fhirType: "string"}, nil
}

func escapeUnescape(t *Translator, name, v string, args []ast.Node, ctx *context, escape bool) (*result, error) {
	if len(args) != 1 {
		return nil, fherrors.ErrWrongArity.New(name, 1, len(args))
	}
	target, err := literalString(args[0])
	if err != nil {
		return nil, err
	}
	var sql string
	switch target {
	case "html":
		if escape {
			sql = t.Dialect.HTMLEscape(v)
		} else {
			sql = t.Dialect.HTMLUnescape(v)
		}
	case "json":
		if escape {
			sql = t.Dialect.JSONEscape(v)
		} else {
			sql = t.Dialect.JSONUnescape(v)
		}
	default:
		return nil, fherrors.ErrUnknownFunction.New(name + "(" + target + ")")
	}
	return &result{sql: t.singleton(sql), fhirType: "string"}, nil
}

func literalString(n ast.Node) (string, error) {
	lit, ok := n.(*ast.Literal)
	if !ok || lit.Kind != ast.LiteralString {
		return "", fherrors.ErrSyntax.New(0, 0, "expected a string literal argument")
	}
	return lit.Value.(string), nil
}
