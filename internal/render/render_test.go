package render

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lherron/shamela/internal/domain"
	"github.com/lherron/shamela/internal/testutil"
)

func sampleBook() *domain.BookData {
	return &domain.BookData{
		Pages:  []domain.Page{{ID: 1, Content: "بسم الله", Page: "1"}, {ID: 2, Content: "<p>", Page: "2"}},
		Titles: []domain.Title{{ID: 9, Content: "مقدمة", Page: 1}},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "json": FormatJSON, "YAML": FormatYAML, " ndjson ": FormatNDJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestRenderJSON_KeepsArabicAndMarkup(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, Options{Format: FormatJSON}).Render(sampleBook()))

	out := buf.String()
	assert.Contains(t, out, "بسم الله")
	assert.Contains(t, out, `"<p>"`)
	assert.Contains(t, out, "\n  ")

	var back domain.BookData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, *sampleBook(), back)
}

func TestRenderJSON_Compact(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, Options{Format: FormatJSON, Compact: true}).Render(map[string]int{"a": 1}))
	assert.Equal(t, "{\"a\":1}\n", buf.String())
}

func TestRenderNDJSON_OneRecordPerEntity(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, Options{Format: FormatNDJSON}).Render(sampleBook()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var rec struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &rec))
	assert.Equal(t, "title", rec.Type)
	assert.Contains(t, string(rec.Data), "مقدمة")
}

func TestRecords_Master(t *testing.T) {
	master := &domain.MasterData{
		Authors:    []domain.Author{{ID: 1}},
		Books:      []domain.Book{{ID: 2}, {ID: 3}},
		Categories: []domain.Category{{ID: 4}},
	}
	items := Records(master)
	require.Len(t, items, 4)
	assert.Equal(t, "author", items[0].(Record).Type)
	assert.Equal(t, "category", items[3].(Record).Type)

	assert.Len(t, Records("plain"), 1)
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, Options{Format: FormatYAML}).Render(sampleBook()))

	var back domain.BookData
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, *sampleBook(), back)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.json")
	require.NoError(t, WriteFile(path, sampleBook(), Options{Format: FormatJSON}))
	assert.Contains(t, testutil.ReadFile(t, path), "بسم الله")

	require.NoError(t, WriteFile(path, map[string]string{"x": "value"}, Options{Format: FormatYAML}))
	assert.Equal(t, "x: value\n", testutil.ReadFile(t, path))
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, Options{})
	require.NoError(t, r.RenderTable([]string{"CODE", "COUNT"}, [][]string{{"5f", "3"}, {"ab", "12"}}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "CODE  COUNT", lines[0])
	assert.Equal(t, "----  -----", lines[1])
	assert.Equal(t, "5f    3    ", lines[2])

	buf.Reset()
	require.NoError(t, NewRenderer(&buf, Options{Compact: true}).RenderTable([]string{"A"}, [][]string{{"1"}}))
	assert.Equal(t, "A\n1\n", buf.String())

	buf.Reset()
	require.NoError(t, r.RenderTable([]string{"A"}, nil))
	assert.Empty(t, buf.String())
}
