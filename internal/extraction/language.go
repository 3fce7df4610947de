package extraction

import "strings"

var languageNames = map[string]string{
	"en": "English",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"pl": "Polish",
	"uk": "Ukrainian",
	"ru": "Russian",
	"tr": "Turkish",
}

// LanguageName maps an ISO 639-1 code (or locale like "de-AT") to an English
// language name for prompts. Unknown values pass through; empty means English.
func LanguageName(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "" {
		return "English"
	}
	if i := strings.IndexAny(c, "-_"); i > 0 {
		c = c[:i]
	}
	if name, ok := languageNames[c]; ok {
		return name
	}
	return strings.TrimSpace(code)
}
