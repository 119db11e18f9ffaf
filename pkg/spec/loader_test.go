package spec

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const xmlSpec = `<?xml version="1.0" encoding="UTF-8"?>
<testconf language="c">
	<build score="10">
		<flags>-Wall -O2</flags>
	</build>
	<testbeds>
		<testbed score="40" name="Sums" type="proportional" onerror="continue">
			<testrun args="1 2" cout="3" retval="0"/>
			<testrun args="'-1' 1" cout="equals(0)" timeout="0.5"/>
			<testrun args="a b" cerr="contains(&quot;usage&quot;)" retval="gt(0)"/>
		</testbed>
		<testbed score="5">
			<testrun args="only one"/>
		</testbed>
		<testbed score="50" onerror="abort">
			<testrun cout="anyof(yes, no)"/>
			<testrun cout="matches(&quot;^\\d+$&quot;)"/>
		</testbed>
	</testbeds>
</testconf>
`

const yamlSpec = `language: c++
build:
  score: 10
  flags: -Wall -O2
testbeds:
  - name: Sums
    score: 40
    type: proportional
    onerror: continue
    testruns:
      - args: "1 2"
        cout: "3"
        retval: "0"
      - args: "'-1' 1"
        cout: "equals(0)"
        timeout: 0.5
  - score: 5
    testruns:
      - args: only one
`

const jsonSpec = `{
  "language": "python",
  "testbeds": [
    {"score": 3, "testruns": [{"args": "a", "cout": "A"}, {"args": "b", "cout": "B"}]}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_XML(t *testing.T) {
	path := writeFile(t, "spec.xml", xmlSpec)

	s, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, s.Source)
	assert.Equal(t, LanguageC, s.Language)
	assert.Equal(t, "gcc", s.BuildTool)
	assert.Equal(t, []string{"-Wall", "-O2"}, s.BuildFlags)
	assert.Equal(t, 10.0, s.BuildScore)

	require.Len(t, s.Testbeds, 2)
	assert.Equal(t, []string{"Testset 2"}, s.Dropped)

	sums := s.Testbeds[0]
	assert.Equal(t, "Sums", sums.Name)
	assert.Equal(t, 40.0, sums.MaxScore)
	assert.Equal(t, Proportional, sums.Scoring)
	assert.Equal(t, PolicyContinue, sums.OnError)
	require.Len(t, sums.Runs, 3)
	assert.Equal(t, []string{"1", "2"}, sums.Runs[0].Args)
	assert.Equal(t, []string{"-1", "1"}, sums.Runs[1].Args)
	assert.Equal(t, 500*time.Millisecond, sums.Runs[1].Timeout)
	assert.True(t, sums.Runs[2].Stderr.Matches("usage: prog"))
	assert.True(t, sums.Runs[2].ExitCode.Matches("2"))

	last := s.Testbeds[1]
	assert.Equal(t, "Testset 3", last.Name)
	assert.Equal(t, PolicyAbort, last.OnError)
	assert.Equal(t, AllOrNothing, last.Scoring)
	assert.True(t, last.Runs[1].Stdout.Matches("123"))
}

func TestLoadFile_YAML(t *testing.T) {
	s, err := LoadFile(writeFile(t, "spec.yaml", yamlSpec))
	require.NoError(t, err)

	assert.Equal(t, LanguageCPP, s.Language)
	assert.Equal(t, "g++", s.BuildTool)
	require.Len(t, s.Testbeds, 1)
	assert.Equal(t, "Sums", s.Testbeds[0].Name)
	assert.Equal(t, 500*time.Millisecond, s.Testbeds[0].Runs[1].Timeout)
	assert.Equal(t, []string{"Testset 2"}, s.Dropped)
}

func TestLoadFile_JSON(t *testing.T) {
	s, err := LoadFile(writeFile(t, "spec.json", jsonSpec))
	require.NoError(t, err)

	assert.Equal(t, LanguagePython, s.Language)
	require.Len(t, s.Testbeds, 1)
	assert.True(t, s.Testbeds[0].Runs[1].Stdout.Matches("B"))
}

func TestLoadFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.xml"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "spec.toml", ""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown specification format")
	})

	t.Run("wrong root element", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "spec.xml", `<config language="c"/>`))
		var serr *SpecificationError
		require.True(t, errors.As(err, &serr))
	})

	t.Run("unknown yaml key", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "spec.yml", "language: c\nlangauge: c\n"))
		var serr *SpecificationError
		require.True(t, errors.As(err, &serr))
	})

	t.Run("unsupported language", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "spec.xml", `<testconf language="cobol"/>`))
		var lerr *UnsupportedLanguageError
		require.True(t, errors.As(err, &lerr))
	})
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("a/b/Spec.XML")
	require.NoError(t, err)
	assert.Equal(t, FormatXML, f)

	f, err = FormatFromPath("spec.yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatFromPath("spec")
	assert.Error(t, err)
}
