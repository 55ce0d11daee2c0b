package doc

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseDocx(t *testing.T) {
	content := makeDocx(t,
		`<w:p><w:r><w:t>Newton proposed gravity.</w:t></w:r></w:p>`+
			`<w:p><w:del><w:r><w:t>removed</w:t></w:r></w:del><w:r><w:t>Kept</w:t></w:r></w:p>`+
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>A</w:t></w:r></w:p></w:tc>`+
			`<w:tc><w:p><w:r><w:t>B</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`)

	text, err := GetFileTextFromIO(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Contains(t, string(text), "Newton proposed gravity.\nKept\n")
	assert.NotContains(t, string(text), "removed")
	assert.Contains(t, string(text), "| A | B |\n")
}

func TestParseDocxNestedTableAndBreaks(t *testing.T) {
	content := makeDocx(t,
		`<w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>`+
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Outer</w:t></w:r></w:p>`+
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Inner</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`+
			`</w:tc></w:tr></w:tbl>`)

	text, err := parseDocx(content)
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two\n| Outer Inner |\n", string(text))
}

func TestParseDocxInvalid(t *testing.T) {
	_, err := parseDocx([]byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	require.NoError(t, zw.Close())
	_, err = parseDocx(buf.Bytes())
	assert.ErrorContains(t, err, "document.xml not found")
}
