// Package normalize cleans free-form catalog input before it is stored.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	htmlTagPattern  = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

// Synopsis trims a synopsis and converts HTML markup to Markdown. Plain text
// passes through unchanged. Returns "" for blank input.
func Synopsis(s string) string {
	s = strings.TrimSpace(stripNulls(s))
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(markdown)
}

// Slugify converts a label to a URL-safe slug.
// "Science Fiction" -> "science-fiction", "Café Noir" -> "cafe-noir".
func Slugify(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = nonAlphanumeric.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// Tags slugifies each tag, dropping blanks and duplicates. Order of first
// occurrence is kept. The result is never nil.
func Tags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		slug := Slugify(t)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		tags = append(tags, slug)
	}
	return tags
}

var languageNames = map[string]string{
	"english": "en", "spanish": "es", "french": "fr", "german": "de",
	"italian": "it", "portuguese": "pt", "dutch": "nl", "russian": "ru",
	"japanese": "ja", "chinese": "zh", "korean": "ko", "arabic": "ar",
	"polish": "pl", "swedish": "sv", "norwegian": "no", "danish": "da",
	"finnish": "fi", "turkish": "tr", "greek": "el", "hebrew": "he",
	"czech": "cs", "ukrainian": "uk", "hindi": "hi", "mandarin": "zh",
}

// LanguageCode reduces a language tag, ISO 639-2 code, or English language
// name to its ISO 639-1 base ("en-US" -> "en", "deu" -> "de",
// "English" -> "en"). Returns "" when unrecognized.
func LanguageCode(raw string) string {
	s := strings.ToLower(strings.TrimSpace(stripNulls(raw)))
	if s == "" {
		return ""
	}
	if code, ok := languageNames[s]; ok {
		return code
	}

	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}

func stripNulls(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
