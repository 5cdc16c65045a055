package filter

import "unicode"

// isLatin reports whether r is a Latin-script letter by code-point range:
// Basic Latin, Latin-1 Supplement, Latin Extended-A/B and Latin Extended
// Additional.
func isLatin(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return true
	case r >= 0x00C0 && r <= 0x024F:
		return r != 0x00D7 && r != 0x00F7 // × and ÷
	case r >= 0x1E00 && r <= 0x1EFF:
		return true
	}
	return false
}

// LatinShare returns the fraction of letters in s that are Latin script and the
// number of letters counted. It returns 0, 0 when s has no letters.
func LatinShare(s string) (float64, int) {
	var letters, latin int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if isLatin(r) {
			latin++
		}
	}
	if letters == 0 {
		return 0, 0
	}
	return float64(latin) / float64(letters), letters
}

// IsNumeric reports whether s consists only of digits and the numeric
// punctuation . , + - % and space, with at least one digit.
func IsNumeric(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.', r == ',', r == '+', r == '-', r == '%', r == ' ':
		default:
			return false
		}
	}
	return digits > 0
}
