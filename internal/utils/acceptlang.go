package utils

import "strings"

// DetermineLocale maps a client language tag (Telegram's language_code, or an
// Accept-Language style list) onto a supported locale. Region subtags are
// ignored ("ru-RU" -> "ru"); the first supported entry wins. When nothing
// matches, def is used, or the first supported locale if def is unsupported.
func DetermineLocale(lang string, supported []string, def string) string {
	sup := map[string]struct{}{}
	for _, s := range supported {
		sup[strings.ToLower(s)] = struct{}{}
	}
	pick := func(tag string) (string, bool) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if semi := strings.IndexByte(tag, ';'); semi >= 0 {
			tag = strings.TrimSpace(tag[:semi])
		}
		if tag == "" {
			return "", false
		}
		if _, ok := sup[tag]; ok {
			return tag, true
		}
		if i := strings.IndexAny(tag, "-_"); i > 0 {
			if _, ok := sup[tag[:i]]; ok {
				return tag[:i], true
			}
		}
		return "", false
	}
	for _, part := range strings.Split(lang, ",") {
		if v, ok := pick(part); ok {
			return v
		}
	}
	if v, ok := pick(def); ok {
		return v
	}
	if len(supported) > 0 {
		return strings.ToLower(supported[0])
	}
	return "en"
}
