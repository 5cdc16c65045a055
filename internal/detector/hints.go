package detector

import "strings"

// tesseractCodes maps BCP 47 style hints to tesseract traineddata names.
var tesseractCodes = map[string]string{
	"zh-hans": "chi_sim",
	"zh-cn":   "chi_sim",
	"zh-hant": "chi_tra",
	"zh-tw":   "chi_tra",
	"ja":      "jpn",
	"ko":      "kor",
	"en":      "eng",
	"de":      "deu",
	"fr":      "fra",
	"es":      "spa",
	"ru":      "rus",
}

// TesseractLanguages converts language hints into tesseract language names.
// Unknown hints are passed through unchanged so raw traineddata names work too.
func TesseractLanguages(hints []string) []string {
	out := make([]string, 0, len(hints))
	seen := make(map[string]bool, len(hints))
	for _, h := range hints {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		code, ok := tesseractCodes[strings.ToLower(h)]
		if !ok {
			code = h
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}
