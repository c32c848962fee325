package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto asks the translate endpoint to detect the source language.
const Auto = "auto"

type entry struct {
	code2 string   // ISO 639-1
	code3 []string // ISO 639-2 terminology and bibliographic forms
	words []string // English names
}

// Common names and three-letter codes users put in config files. Anything
// else falls through to BCP 47 parsing.
var entries = []entry{
	{"en", []string{"eng"}, []string{"english"}},
	{"hi", []string{"hin"}, []string{"hindi"}},
	{"ru", []string{"rus"}, []string{"russian"}},
	{"uk", []string{"ukr"}, []string{"ukrainian"}},
	{"es", []string{"spa"}, []string{"spanish"}},
	{"fr", []string{"fra", "fre"}, []string{"french"}},
	{"de", []string{"deu", "ger"}, []string{"german"}},
	{"it", []string{"ita"}, []string{"italian"}},
	{"pt", []string{"por"}, []string{"portuguese"}},
	{"ja", []string{"jpn"}, []string{"japanese"}},
	{"ko", []string{"kor"}, []string{"korean"}},
	{"zh", []string{"zho", "chi"}, []string{"chinese", "mandarin"}},
	{"ar", []string{"ara"}, []string{"arabic"}},
	{"bn", []string{"ben"}, []string{"bengali", "bangla"}},
	{"ta", []string{"tam"}, []string{"tamil"}},
	{"te", []string{"tel"}, []string{"telugu"}},
	{"mr", []string{"mar"}, []string{"marathi"}},
	{"ur", []string{"urd"}, []string{"urdu"}},
	{"tr", []string{"tur"}, []string{"turkish"}},
	{"id", []string{"ind"}, []string{"indonesian"}},
	{"nl", []string{"nld", "dut"}, []string{"dutch"}},
	{"pl", []string{"pol"}, []string{"polish"}},
}

// Macro-language members that share a voice pool with their parent.
var baseAliases = map[string]string{
	"nb":  "no",
	"nn":  "no",
	"cmn": "zh",
}

var lookupTable = buildLookup()

func buildLookup() map[string]string {
	table := make(map[string]string, len(entries)*4)
	for _, e := range entries {
		table[e.code2] = e.code2
		for _, code := range e.code3 {
			table[code] = e.code2
		}
		for _, word := range e.words {
			table[word] = e.code2
		}
	}
	return table
}

// Normalize maps a language name, ISO 639 code or BCP 47 tag to the code the
// translate endpoint expects: "hi", "pt", or a region-qualified tag such as
// "zh-CN" when the region matters. Auto passes through. Unrecognized input
// returns "".
func Normalize(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return ""
	}
	if trimmed == Auto {
		return Auto
	}
	if code, ok := lookupTable[trimmed]; ok {
		return code
	}
	tag, err := xlanguage.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == xlanguage.No || base.String() == "und" {
		return ""
	}
	if region, rconf := tag.Region(); rconf == xlanguage.Exact {
		return base.String() + "-" + region.String()
	}
	return base.String()
}

// Base returns the primary language subtag of a normalized code, e.g. "zh"
// for "zh-CN". It returns "" for Auto and unrecognized values.
func Base(value string) string {
	code := Normalize(value)
	if code == "" || code == Auto {
		return ""
	}
	base, _, _ := strings.Cut(code, "-")
	if alias, ok := baseAliases[base]; ok {
		return alias
	}
	return base
}

// VoiceLocale extracts the locale prefix of an edge-tts voice name, e.g.
// "hi-IN" from "hi-IN-SwaraNeural".
func VoiceLocale(voice string) string {
	parts := strings.SplitN(strings.TrimSpace(voice), "-", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return parts[0] + "-" + parts[1]
}

// VoiceMatches reports whether voice speaks the target language. Voices
// without a recognizable locale prefix are accepted as given.
func VoiceMatches(target, voice string) bool {
	locale := VoiceLocale(voice)
	if locale == "" || Base(locale) == "" {
		return true
	}
	return Base(locale) == Base(target)
}

// DisplayName returns the English name for a code, "Auto-detect" for Auto,
// and the upper-cased input when nothing matches.
func DisplayName(value string) string {
	code := Normalize(value)
	switch code {
	case "":
		if strings.TrimSpace(value) == "" {
			return "Unknown"
		}
		return strings.ToUpper(strings.TrimSpace(value))
	case Auto:
		return "Auto-detect"
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(code)
}
