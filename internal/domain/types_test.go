package domain

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAuthorIDs_JSON(t *testing.T) {
	tests := []struct {
		name string
		ids  AuthorIDs
		want string
	}{
		{"single", AuthorIDs{7}, `7`},
		{"many", AuthorIDs{7, 9}, `[7,9]`},
		{"empty", AuthorIDs{}, `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ids)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestAuthorIDs_UnmarshalJSON(t *testing.T) {
	var one AuthorIDs
	require.NoError(t, json.Unmarshal([]byte(`12`), &one))
	assert.Equal(t, AuthorIDs{12}, one)

	var many AuthorIDs
	require.NoError(t, json.Unmarshal([]byte(`[1,2,3]`), &many))
	assert.Equal(t, AuthorIDs{1, 2, 3}, many)

	var bad AuthorIDs
	assert.Error(t, json.Unmarshal([]byte(`"x"`), &bad))
}

func TestAuthorIDs_YAML(t *testing.T) {
	data, err := yaml.Marshal(Book{ID: 1, Author: AuthorIDs{4}})
	require.NoError(t, err)
	assert.Contains(t, string(data), "author: 4\n")

	data, err = yaml.Marshal(Book{ID: 1, Author: AuthorIDs{4, 5}})
	require.NoError(t, err)
	assert.Contains(t, string(data), "author:\n    - 4\n    - 5\n")
}

func TestBook_OmitsUnknownDate(t *testing.T) {
	data, err := json.Marshal(Book{ID: 1, Name: "x", Date: KnownYear(UnknownYear)})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	_, present := fields["date"]
	assert.False(t, present, "date key must be absent, got %s", data)

	data, err = json.Marshal(Book{ID: 1, Date: KnownYear(1420)})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date":1420`)
}

func TestTitle_OmitsZeroParent(t *testing.T) {
	data, err := json.Marshal(Title{ID: 1, Content: "باب", Page: 3})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "parent")
}

func TestMalformedCellError(t *testing.T) {
	cause := errors.New("bad json")
	err := error(&MalformedCellError{Table: "book", Column: "pdf_links", ID: int64(3), Value: "{", Err: cause})

	assert.True(t, errors.Is(err, ErrMalformedCell))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "book.pdf_links (id 3)")
}

func TestParseBookID(t *testing.T) {
	id, err := ParseBookID(" 26592 ")
	require.NoError(t, err)
	assert.Equal(t, 26592, id)

	for _, bad := range []string{"", "abc", "0", "-4"} {
		_, err := ParseBookID(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateVersion(t *testing.T) {
	assert.NoError(t, ValidateVersion(0))
	assert.Error(t, ValidateVersion(-1))
}
