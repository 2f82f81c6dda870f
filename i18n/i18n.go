// Package i18n resolves the request language and renders message keys from
// the embedded JSON catalogs.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var ErrUnknownLanguage = errors.New("unknown language")

type Translator struct {
	catalogs  map[string]map[string]string
	languages []string
	fallback  string
	matcher   language.Matcher
}

// New loads the catalogs for the given language codes. The fallback must be
// one of them.
func New(languages []string, fallback string) (*Translator, error) {
	t := &Translator{
		catalogs: make(map[string]map[string]string, len(languages)),
		fallback: fallback,
	}

	tags := make([]language.Tag, 0, len(languages))
	for _, lang := range languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}

		raw, err := localeFS.ReadFile(path.Join("locales", lang+".json"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, lang)
		}

		var tree map[string]any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse %s catalog: %w", lang, err)
		}

		catalog := make(map[string]string)
		flatten("", tree, catalog)
		t.catalogs[lang] = catalog
		t.languages = append(t.languages, lang)
		tags = append(tags, tagFor(lang))
	}

	if _, ok := t.catalogs[fallback]; !ok {
		return nil, fmt.Errorf("%w: fallback %s", ErrUnknownLanguage, fallback)
	}

	t.matcher = language.NewMatcher(tags)
	return t, nil
}

func (t *Translator) Fallback() string {
	return t.fallback
}

func (t *Translator) Languages() []string {
	return append([]string(nil), t.languages...)
}

// Resolve picks the response language from an explicit query value first,
// then the Accept-Language header, then the fallback.
func (t *Translator) Resolve(query, acceptLanguage string) string {
	if lang := t.normalize(query); lang != "" {
		return lang
	}

	if acceptLanguage == "" {
		return t.fallback
	}

	if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil && len(tags) > 0 {
		_, idx, conf := t.matcher.Match(tags...)
		if conf != language.No && idx < len(t.languages) {
			return t.languages[idx]
		}
	}

	// "kh" is not a registered subtag, so the parser above rejects it.
	for _, part := range strings.Split(acceptLanguage, ",") {
		code, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if lang := t.normalize(code); lang != "" {
			return lang
		}
	}

	return t.fallback
}

// T renders key in lang. Placeholders of the form {name} are replaced from
// args. Unknown keys render as the key itself.
func (t *Translator) T(lang, key string, args map[string]any) string {
	msg, ok := t.catalogs[lang][key]
	if !ok {
		msg, ok = t.catalogs[t.fallback][key]
	}
	if !ok {
		return key
	}

	if len(args) == 0 {
		return msg
	}

	// deterministic replacement order for overlapping names
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		msg = strings.ReplaceAll(msg, "{"+name+"}", fmt.Sprint(args[name]))
	}
	return msg
}

func (t *Translator) Has(lang, key string) bool {
	_, ok := t.catalogs[lang][key]
	return ok
}

func (t *Translator) normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if code == "km" {
		code = "kh"
	}
	if _, ok := t.catalogs[code]; ok {
		return code
	}
	return ""
}

func tagFor(lang string) language.Tag {
	if lang == "kh" {
		return language.Khmer
	}
	return language.Make(lang)
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		}
	}
}
