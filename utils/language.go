package utils

import "strings"

type LanguageType string

const (
	VI LanguageType = "vi"
	EN LanguageType = "en"
)

var languageLabels = map[LanguageType]string{
	VI: "Tiếng Việt",
	EN: "English",
}

func GetLanguageLabel(langType LanguageType) string {
	if label, ok := languageLabels[langType]; ok {
		return label
	}
	return "Không xác định"
}

// ParseLanguage picks the first supported language of an Accept-Language header, or def.
func ParseLanguage(header string, def LanguageType) LanguageType {
	for _, part := range strings.Split(header, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if i := strings.IndexAny(tag, ";-_"); i >= 0 {
			tag = tag[:i]
		}
		if _, ok := languageLabels[LanguageType(tag)]; ok {
			return LanguageType(tag)
		}
	}
	return def
}
