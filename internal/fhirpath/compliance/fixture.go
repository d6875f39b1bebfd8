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
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fhirtype"
)

// xmlNode is a generic, schema-free representation of one FHIR XML element:
// its tag name, its attributes, and its child elements in document order.
// encoding/xml supports this self-referential shape natively (no custom
// UnmarshalXML needed) because the struct's own field list, not its data, is
// what must be acyclic.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// LoadContext loads the XML fixture named by fixtureFile under dir and
// converts it to a FHIR JSON-shaped map per the cardinality rules in reg
// (spec.md §4.6 step 1). An empty fixtureFile, or one that can't be found,
// yields the context-free default {"resourceType": "Resource"} so arithmetic
// tests that don't touch a resource still have a valid FHIRPath root.
func LoadContext(dir, fixtureFile string, reg *fhirtype.Registry) (map[string]any, error) {
	if fixtureFile == "" {
		return map[string]any{"resourceType": "Resource"}, nil
	}
	path := filepath.Join(dir, fixtureFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]any{"resourceType": "Resource"}, nil
	}
	return ParseFixture(data, reg)
}

// ParseFixture converts one FHIR XML resource document's bytes to the JSON
// shape the dialect's json-column storage expects: "value" attributes
// become scalar primitives, other attributes become regular fields, and any
// field the registry declares 0..*/1..* is always emitted as an array even
// when the fixture has a single occurrence (§6.2).
func ParseFixture(data []byte, reg *fhirtype.Registry) (map[string]any, error) {
	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	resourceType := root.XMLName.Local
	out := map[string]any{"resourceType": resourceType}
	for _, grp := range groupChildren(root.Nodes) {
		out[grp.name] = buildField(resourceType, grp.name, grp.nodes, reg)
	}
	return out, nil
}

// fieldGroup is one field name plus its (possibly repeated) child elements.
type fieldGroup struct {
	name  string
	nodes []xmlNode
}

// groupChildren groups nodes by tag name, preserving first-seen order so
// repeated conversions of the same fixture are byte-identical (the CTE
// builder's determinism requirement extends to the compliance runner's own
// inputs).
func groupChildren(nodes []xmlNode) []fieldGroup {
	var groups []fieldGroup
	index := map[string]int{}
	for _, n := range nodes {
		name := n.XMLName.Local
		if i, ok := index[name]; ok {
			groups[i].nodes = append(groups[i].nodes, n)
			continue
		}
		index[name] = len(groups)
		groups = append(groups, fieldGroup{name: name, nodes: []xmlNode{n}})
	}
	return groups
}

func buildField(parentType, fieldName string, nodes []xmlNode, reg *fhirtype.Registry) any {
	repeats := len(nodes) > 1 || reg.IsArrayField(parentType, fieldName)
	if !repeats {
		return buildElement(nodes[0], reg)
	}
	vals := make([]any, 0, len(nodes))
	for _, n := range nodes {
		vals = append(vals, buildElement(n, reg))
	}
	return vals
}

// buildElement converts one XML element to either a bare scalar (the
// "simple" FHIR primitive shape) or an object (the "complex" shape carrying
// extensions or sibling attributes), per spec.md §4.3.1.
func buildElement(n xmlNode, reg *fhirtype.Registry) any {
	value, hasValue := n.attr("value")
	otherAttrs := nonValueAttrs(n.Attrs)

	if hasValue && len(n.Nodes) == 0 && len(otherAttrs) == 0 {
		return value
	}

	obj := map[string]any{}
	if hasValue {
		obj["value"] = value
	}
	for _, a := range otherAttrs {
		obj[a.Name.Local] = a.Value
	}
	for _, grp := range groupChildren(n.Nodes) {
		obj[grp.name] = buildField(n.XMLName.Local, grp.name, grp.nodes, reg)
	}
	return obj
}

func nonValueAttrs(attrs []xml.Attr) []xml.Attr {
	out := make([]xml.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Name.Local != "value" {
			out = append(out, a)
		}
	}
	return out
}
