// Package decode converts the byte encodings found in the narrator and roots
// databases into Unicode text.
//
// The narrator database uses a reverse-engineered single-byte code page with
// two profiles: Text for body content and Metadata for labelled fields. The
// roots database uses the standard Windows-1256 Arabic code page.
package decode

import (
	"fmt"
	"strings"
)

// Profile selects which mapping table Decode uses.
type Profile int

const (
	// ProfileText decodes body text; the field terminator renders as a
	// paragraph break and noise bytes render as visible glyphs.
	ProfileText Profile = iota
	// ProfileMetadata decodes labelled fields; the field terminator renders
	// as a colon and noise bytes are dropped.
	ProfileMetadata
)

func (p Profile) String() string {
	switch p {
	case ProfileText:
		return "text"
	case ProfileMetadata:
		return "metadata"
	default:
		return fmt.Sprintf("profile(%d)", int(p))
	}
}

// ParseProfile maps a profile name to a Profile.
func ParseProfile(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text":
		return ProfileText, nil
	case "metadata", "meta":
		return ProfileMetadata, nil
	default:
		return 0, fmt.Errorf("unknown decode profile %q", name)
	}
}

// fieldTerminator separates a field label from its value in metadata records
// and marks a paragraph break in body text.
const fieldTerminator byte = 0x6b

var legacyBase = map[byte]string{
	0x20: " ",
	0x0a: "\n",
	0x0d: "",

	// Arabic-Indic digits.
	0x30: "٠", 0x31: "١", 0x32: "٢", 0x33: "٣", 0x34: "٤",
	0x35: "٥", 0x36: "٦", 0x37: "٧", 0x38: "٨", 0x39: "٩",

	0x41: "م", 0x42: "ك", 0x43: "ن", 0x44: "ق", 0x45: "ل",
	0x46: "ف", 0x47: "ه", 0x48: "و", 0x49: "ي", 0x4a: "ى",
	0x4b: "ة", 0x4c: "غ", 0x4d: "ع", 0x4e: "ظ", 0x4f: "ط",
	0x50: "ض", 0x51: "ص", 0x52: "ش", 0x53: "س", 0x54: "ز",
	0x55: "ر", 0x56: "ذ", 0x57: "د", 0x58: "خ", 0x59: "ح",
	0x5a: "ج",

	0x61: "ء", 0x62: "آ", 0x63: "أ", 0x64: "ؤ", 0x65: "إ",
	0x66: "ئ", 0x67: "ث", 0x68: "ا", 0x69: "ت", 0x6a: "لا",
	0x74: "ب",

	// Punctuation.
	0x21: "!", 0x28: "(", 0x29: ")", 0x2d: "-", 0x2e: ".",
	0x2c: "،", 0x3b: "؛", 0x3f: "؟", 0x22: "\"",
	0x6c: "،", 0x6d: "؛", 0x6e: "؟", 0x6f: ".",
	0x70: "(", 0x71: ")", 0x72: "«", 0x73: "»",
	0x75: "-", 0x76: "\"", 0x77: "!",

	// Diacritics.
	0x80: "َ", // fatha
	0x81: "ُ", // damma
	0x82: "ِ", // kasra
	0x83: "ْ", // sukun
	0x84: "ّ", // shadda
	0x85: "ً", // fathatan
	0x86: "ٌ", // dammatan
	0x87: "ٍ", // kasratan
}

// Noise bytes appear around field boundaries in metadata records.
var noiseGlyphs = map[byte]string{
	0x5e: "ـ",
	0x60: "*",
	0x7e: "~",
}

var (
	textTable     = buildTable(legacyBase, noiseGlyphs, map[byte]string{fieldTerminator: "\n"})
	metadataTable = buildTable(legacyBase, dropAll(noiseGlyphs), map[byte]string{fieldTerminator: ":"})
)

type codeTable struct {
	glyph  [256]string
	mapped [256]bool
}

func buildTable(layers ...map[byte]string) *codeTable {
	t := &codeTable{}
	for _, layer := range layers {
		for b, s := range layer {
			t.glyph[b] = s
			t.mapped[b] = true
		}
	}
	return t
}

func dropAll(m map[byte]string) map[byte]string {
	out := make(map[byte]string, len(m))
	for b := range m {
		out[b] = ""
	}
	return out
}

func tableFor(p Profile) *codeTable {
	if p == ProfileMetadata {
		return metadataTable
	}
	return textTable
}

// Decode converts legacy-encoded bytes to text using the given profile.
// Bytes with no mapping are rendered in place as "[xx]" so that partially
// decoded output can still be inspected. Only spaces and tabs are trimmed
// from the ends; other whitespace such as a leading or trailing "\n" from
// the field terminator is part of the result.
func Decode(b []byte, p Profile) string {
	if len(b) == 0 {
		return ""
	}

	t := tableFor(p)
	var sb strings.Builder
	sb.Grow(len(b) * 2)
	for _, c := range b {
		if t.mapped[c] {
			sb.WriteString(t.glyph[c])
			continue
		}
		fmt.Fprintf(&sb, "[%02x]", c)
	}

	return strings.Trim(sb.String(), " \t")
}

// Mapped reports whether byte c has an entry in the profile's table.
func Mapped(c byte, p Profile) bool {
	return tableFor(p).mapped[c]
}
