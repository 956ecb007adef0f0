package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() AggregateResult {
	return AggregateResult{
		"/data/b.py":  {1: "hello"},
		"/data/a.txt": {10: "hello again", 2: "hello world"},
	}
}

func TestReporter_Text(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewReporter(&out, FormatText).Render(sampleResult()))

	want := "/data/a.txt\n" +
		"    2: hello world\n" +
		"    10: hello again\n" +
		"\n" +
		"/data/b.py\n" +
		"    1: hello\n" +
		"\n"
	require.Equal(t, want, out.String())
}

func TestReporter_TextEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewReporter(&out, "").Render(AggregateResult{}))
	require.Empty(t, out.String())
}

func TestReporter_JSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewReporter(&out, FormatJSON).Render(sampleResult()))

	var got []fileOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, ordered(sampleResult()), got)
	require.Equal(t, "/data/a.txt", got[0].Path)
	require.Equal(t, []lineOutput{{2, "hello world"}, {10, "hello again"}}, got[0].Matches)
}

func TestReporter_YAML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewReporter(&out, FormatYAML).Render(sampleResult()))

	var got []fileOutput
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Equal(t, ordered(sampleResult()), got)
	require.Contains(t, out.String(), "path: /data/a.txt")
}

func TestReporter_UnknownFormat(t *testing.T) {
	require.Error(t, NewReporter(&bytes.Buffer{}, "xml").Render(sampleResult()))
}
