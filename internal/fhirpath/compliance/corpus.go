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

// Package compliance runs the external FHIRPath XML test corpus against the
// translator and a live dialect, validates results against each test's
// expected output, categorizes failures, and emits a JSON report (spec.md
// §4.6). XML parsing uses the standard library encoding/xml: no XML library
// appears anywhere in the retrieved example corpus, and stdlib is the
// idiomatic choice here the same way the teacher reaches for stdlib
// encoding/json rather than a third-party JSON library (see DESIGN.md).
package compliance

import (
	"encoding/xml"
	"os"
	"strings"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

// Invalid is the closed set of "this test is expected to fail" tags
// (spec.md §3.6).
type Invalid string

const (
	InvalidNone     Invalid = ""
	InvalidSyntax   Invalid = "syntax"
	InvalidSemantic Invalid = "semantic"
	InvalidExec     Invalid = "execution"
)

// ExpectedOutput is one typed expected value; a test with no outputs
// expects an empty result.
type ExpectedOutput struct {
	Type  string
	Value string
}

// TestCase is the Go encoding of spec.md §3.6: name, expression, optional
// input fixture, ordered expected outputs, optional invalid/predicate tags.
type TestCase struct {
	Group      string
	Name       string
	Expression string
	InputFile  string
	Expected   []ExpectedOutput
	Invalid    Invalid
	Predicate  bool
}

// --- raw XML shapes (§6.4) ---

type xmlTests struct {
	XMLName xml.Name   `xml:"tests"`
	Groups  []xmlGroup `xml:"group"`
	Tests   []xmlTest  `xml:"test"` // tolerate a corpus with no <group> wrapper
}

type xmlGroup struct {
	Name  string    `xml:"name,attr"`
	Tests []xmlTest `xml:"test"`
}

type xmlTest struct {
	Name       string        `xml:"name,attr"`
	InputFile  string        `xml:"inputfile,attr"`
	Predicate  string        `xml:"predicate,attr"`
	Expression xmlExpression `xml:"expression"`
	Outputs    []xmlOutput   `xml:"output"`
}

type xmlExpression struct {
	Invalid string `xml:"invalid,attr"`
	Text    string `xml:",chardata"`
}

type xmlOutput struct {
	Type string `xml:"type,attr"`
	Attr string `xml:"value,attr"`
	Text string `xml:",chardata"`
}

// value returns the output's value, accepting either the "value" attribute
// or element text (§6.4: "Value may appear as attribute or element text").
func (o xmlOutput) value() string {
	if o.Attr != "" {
		return o.Attr
	}
	return strings.TrimSpace(o.Text)
}

// LoadCorpus parses an XML test-corpus file into TestCases.
func LoadCorpus(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc xmlTests
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fherrors.ErrSyntax.New(0, 0, "compliance corpus: "+err.Error())
	}

	var cases []TestCase
	for _, g := range doc.Groups {
		for _, t := range g.Tests {
			cases = append(cases, toTestCase(g.Name, t))
		}
	}
	for _, t := range doc.Tests {
		cases = append(cases, toTestCase("", t))
	}
	return cases, nil
}

func toTestCase(group string, t xmlTest) TestCase {
	tc := TestCase{
		Group:      group,
		Name:       t.Name,
		Expression: strings.TrimSpace(t.Expression.Text),
		InputFile:  t.InputFile,
		Invalid:    Invalid(t.Expression.Invalid),
		Predicate:  strings.EqualFold(t.Predicate, "true"),
	}
	for _, o := range t.Outputs {
		tc.Expected = append(tc.Expected, ExpectedOutput{Type: o.Type, Value: o.value()})
	}
	return tc
}
