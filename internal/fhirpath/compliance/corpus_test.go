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
)

const sampleCorpus = `<?xml version="1.0" encoding="UTF-8"?>
<tests>
  <group name="arithmetic">
    <test name="addition">
      <expression>1 + 1</expression>
      <output type="integer">2</output>
    </test>
    <test name="bad-syntax">
      <expression invalid="syntax">1 +</expression>
    </test>
    <test name="predicate-exists">
      <expression>Patient.deceased.exists()</expression>
      <output type="boolean" value="true"/>
    </test>
  </group>
</tests>`

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCorpus), 0o644))
	return path
}

func TestLoadCorpus(t *testing.T) {
	path := writeCorpus(t)
	cases, err := LoadCorpus(path)
	require.NoError(t, err)
	require.Len(t, cases, 3)

	assert.Equal(t, "arithmetic", cases[0].Group)
	assert.Equal(t, "addition", cases[0].Name)
	assert.Equal(t, "1 + 1", cases[0].Expression)
	require.Len(t, cases[0].Expected, 1)
	assert.Equal(t, "integer", cases[0].Expected[0].Type)
	assert.Equal(t, "2", cases[0].Expected[0].Value)
	assert.Equal(t, InvalidNone, cases[0].Invalid)

	assert.Equal(t, InvalidSyntax, cases[1].Invalid)

	assert.True(t, cases[2].Predicate == false) // predicate attr absent here
	assert.Equal(t, "true", cases[2].Expected[0].Value)
}

func TestXMLOutput_ValueFromAttrOrText(t *testing.T) {
	attrOut := xmlOutput{Attr: "5"}
	assert.Equal(t, "5", attrOut.value())

	textOut := xmlOutput{Text: "  hello  "}
	assert.Equal(t, "hello", textOut.value())
}
