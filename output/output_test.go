package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name string `json:"name" yaml:"name" plist:"name"`
	Size uint64 `json:"size" yaml:"size" plist:"size"`
}

type records []record

func (r records) Headers() []string { return []string{"Name", "Size"} }
func (r records) Rows() [][]string {
	var rows [][]string
	for _, x := range r {
		rows = append(rows, []string{x.Name, "small"})
	}
	return rows
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "", want: FormatText},
		{input: "table", want: FormatText},
		{input: "JSON", want: FormatJSON},
		{input: " yml ", want: FormatYAML},
		{input: "plist", want: FormatPlist},
		{input: "csv", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestPrint(t *testing.T) {
	data := records{{Name: "a.jpg", Size: 3}}
	for _, tc := range []struct {
		format Format
		want   []string
	}{
		{FormatText, []string{"NAME", "a.jpg", "small"}},
		{FormatJSON, []string{`"name": "a.jpg"`, `"size": 3`}},
		{FormatYAML, []string{"- name: a.jpg", "size: 3"}},
		{FormatPlist, []string{"<key>name</key>", "<string>a.jpg</string>", "<integer>3</integer>"}},
	} {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, tc.format).Print(data))
		for _, w := range tc.want {
			assert.Contains(t, buf.String(), w, "format %s", tc.format)
		}
	}
}

func TestPrintTextFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatText).Print(record{Name: "x"}))
	assert.Contains(t, buf.String(), `"name": "x"`)
}

func TestPrintPairs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintPairs(&buf, [][2]string{{"Model", "D90"}}))
	assert.Contains(t, buf.String(), "Model")
	assert.Contains(t, buf.String(), "D90")
}
