package domain

import (
	"fmt"

	"github.com/goccy/go-json"
)

// UnknownYear marks a date or death-year cell whose value is not known.
// Entities omit the field instead of carrying it.
const UnknownYear = 99999

// Author represents a catalog author
type Author struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Biography string `json:"biography,omitempty" yaml:"biography,omitempty"`
	Death     *int64 `json:"death,omitempty" yaml:"death,omitempty"`
}

// Book represents a catalog book entry
type Book struct {
	ID           int64     `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Category     int64     `json:"category" yaml:"category"`
	Type         int64     `json:"type" yaml:"type"`
	Date         *int64    `json:"date,omitempty" yaml:"date,omitempty"`
	Author       AuthorIDs `json:"author,omitempty" yaml:"author,omitempty"`
	Printed      int64     `json:"printed" yaml:"printed"`
	MajorRelease int64     `json:"major_release" yaml:"major_release"`
	MinorRelease int64     `json:"minor_release" yaml:"minor_release"`
	Bibliography string    `json:"bibliography" yaml:"bibliography"`
	Hint         string    `json:"hint" yaml:"hint"`
	PDFLinks     *PDFLinks `json:"pdf_links,omitempty" yaml:"pdf_links,omitempty"`
	Metadata     string    `json:"metadata" yaml:"metadata"`
}

// PDFLinks is the structured form of a book's pdf_links cell
type PDFLinks struct {
	Alias    int64     `json:"alias,omitempty" yaml:"alias,omitempty"`
	Cover    int64     `json:"cover,omitempty" yaml:"cover,omitempty"`
	CoverURL string    `json:"cover_url,omitempty" yaml:"cover_url,omitempty"`
	Files    []PDFFile `json:"files,omitempty" yaml:"files,omitempty"`
	Root     string    `json:"root,omitempty" yaml:"root,omitempty"`
	Size     int64     `json:"size,omitempty" yaml:"size,omitempty"`
}

// PDFFile is one "name|id" entry of PDFLinks.Files
type PDFFile struct {
	File string `json:"file" yaml:"file"`
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
}

// Category represents a catalog category
type Category struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Page is one page of a book. Content is the raw page markup. Part, Page
// and Number are printed labels and are kept as text.
type Page struct {
	ID      int64  `json:"id" yaml:"id"`
	Content string `json:"content" yaml:"content"`
	Part    string `json:"part,omitempty" yaml:"part,omitempty"`
	Page    string `json:"page,omitempty" yaml:"page,omitempty"`
	Number  string `json:"number,omitempty" yaml:"number,omitempty"`
}

// Title is one entry of a book's table of contents
type Title struct {
	ID      int64  `json:"id" yaml:"id"`
	Content string `json:"content" yaml:"content"`
	Page    int64  `json:"page" yaml:"page"`
	Parent  int64  `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// BookData is the assembled content of one book
type BookData struct {
	Pages  []Page  `json:"pages" yaml:"pages"`
	Titles []Title `json:"titles" yaml:"titles"`
}

// MasterData is the assembled catalog
type MasterData struct {
	Authors    []Author   `json:"authors" yaml:"authors"`
	Books      []Book     `json:"books" yaml:"books"`
	Categories []Category `json:"categories" yaml:"categories"`
}

// AuthorIDs holds the author id(s) of a book. A single id is encoded as a
// scalar, several ids as a list.
type AuthorIDs []int64

// MarshalJSON implements json.Marshaler
func (a AuthorIDs) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]int64(a))
}

// UnmarshalJSON implements json.Unmarshaler
func (a *AuthorIDs) UnmarshalJSON(data []byte) error {
	var single int64
	if err := json.Unmarshal(data, &single); err == nil {
		*a = AuthorIDs{single}
		return nil
	}

	var many []int64
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("author ids: %w", err)
	}
	*a = AuthorIDs(many)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (a AuthorIDs) MarshalYAML() (interface{}, error) {
	if len(a) == 1 {
		return a[0], nil
	}
	return []int64(a), nil
}
