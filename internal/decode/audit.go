package decode

import "regexp"

var placeholderPattern = regexp.MustCompile(`\[([0-9a-f]{2})\]`)

// HasUnmapped reports whether decoded text still contains "[xx]" placeholders.
func HasUnmapped(text string) bool {
	return placeholderPattern.MatchString(text)
}

// UnmappedCodes returns the distinct placeholder codes in text, in the order
// they first appear.
func UnmappedCodes(text string) []string {
	var codes []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		codes = append(codes, m[1])
	}
	return codes
}

// CountUnmapped counts occurrences of each placeholder code in text.
func CountUnmapped(text string) map[string]int {
	counts := make(map[string]int)
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		counts[m[1]]++
	}
	return counts
}
