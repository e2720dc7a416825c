package product

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when no locale is configured.
const DefaultLanguage = "en_US"

// Locale provides the language licenses are shown in.
type Locale interface {
	Language() string
}

// EnvLocale reads the language from Override or the POSIX locale
// environment (LC_ALL, LC_MESSAGES, LANG, in that order).
type EnvLocale struct {
	Override string
}

func (e EnvLocale) Language() string {
	candidates := []string{e.Override, os.Getenv("LC_ALL"), os.Getenv("LC_MESSAGES"), os.Getenv("LANG")}
	for _, c := range candidates {
		if c == "" || c == "C" || c == "POSIX" {
			continue
		}
		if lang := Canonical(c); lang != "" {
			return lang
		}
	}
	return DefaultLanguage
}

// Canonical converts a locale such as "de_DE.UTF-8" or "pt-br" into the
// ll_CC form used by the license store. Unparseable input is returned with
// the encoding and modifier stripped.
func Canonical(locale string) string {
	locale, _, _ = strings.Cut(locale, ".")
	locale, _, _ = strings.Cut(locale, "@")
	if locale == "" {
		return ""
	}

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return locale
	}
	base, _ := tag.Base()
	region, conf := tag.Region()
	if conf == language.Exact {
		return base.String() + "_" + region.String()
	}
	return base.String()
}
