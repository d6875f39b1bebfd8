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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fhirtype"
)

const patientFixture = `<?xml version="1.0" encoding="UTF-8"?>
<Patient xmlns="http://hl7.org/fhir">
  <birthDate value="1970-01-01">
    <extension url="http://example.org/source">
      <valueString value="self-reported"/>
    </extension>
  </birthDate>
  <name>
    <use value="official"/>
    <family value="Smith"/>
    <given value="John"/>
    <given value="Q"/>
  </name>
  <deceasedBoolean value="true"/>
</Patient>`

func TestParseFixture_SimplePrimitivePromotesToScalar(t *testing.T) {
	reg := fhirtype.Default()
	out, err := ParseFixture([]byte(patientFixture), reg)
	require.NoError(t, err)

	assert.Equal(t, "Patient", out["resourceType"])
	assert.Equal(t, "true", out["deceasedBoolean"])
}

func TestParseFixture_ComplexPrimitiveKeepsExtension(t *testing.T) {
	reg := fhirtype.Default()
	out, err := ParseFixture([]byte(patientFixture), reg)
	require.NoError(t, err)

	bd, ok := out["birthDate"].(map[string]any)
	require.True(t, ok, "birthDate should carry its extension as an object")
	assert.Equal(t, "1970-01-01", bd["value"])
	assert.NotNil(t, bd["extension"])
}

func TestParseFixture_CardinalityForcesArray(t *testing.T) {
	reg := fhirtype.Default()
	out, err := ParseFixture([]byte(patientFixture), reg)
	require.NoError(t, err)

	names, ok := out["name"].([]any)
	require.True(t, ok, "Patient.name always repeats per the registry")
	require.Len(t, names, 1)

	name := names[0].(map[string]any)
	given, ok := name["given"].([]any)
	require.True(t, ok, "HumanName.given always repeats")
	assert.Len(t, given, 2)
}

func TestLoadContext_MissingFixture_ReturnsBareResource(t *testing.T) {
	reg := fhirtype.Default()
	ctx, err := LoadContext(t.TempDir(), "does-not-exist.xml", reg)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"resourceType": "Resource"}, ctx)
}

func TestLoadContext_EmptyFileName_ReturnsBareResource(t *testing.T) {
	reg := fhirtype.Default()
	ctx, err := LoadContext("", "", reg)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"resourceType": "Resource"}, ctx)
}

func TestLoadContext_ReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patient.xml")
	require.NoError(t, os.WriteFile(path, []byte(patientFixture), 0o644))

	ctx, err := LoadContext(dir, "patient.xml", fhirtype.Default())
	require.NoError(t, err)
	assert.Equal(t, "Patient", ctx["resourceType"])
}
