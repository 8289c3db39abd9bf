package decode

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// DecodeCodepage converts Windows-1256 bytes to text. ASCII passes through
// unchanged; bytes at 0x80 and above are looked up in the code page.
func DecodeCodepage(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	out, err := charmap.Windows1256.NewDecoder().Bytes(b)
	if err != nil {
		// Windows-1256 maps every byte.
		return strings.Trim(string(b), " \t")
	}
	return strings.Trim(string(out), " \t")
}

// ParseMultiValue splits a comma-separated cell into trimmed, non-empty values.
func ParseMultiValue(cell string) []string {
	var values []string
	for _, part := range strings.Split(cell, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		values = append(values, part)
	}
	return values
}
