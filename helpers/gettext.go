package helpers

import (
	_ "embed"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/Jeffail/gabs"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

// DefaultLocale is used when neither the user nor the interaction carries a supported locale
const DefaultLocale = "en-US"

//go:embed assets/i18n.json
var i18nAsset []byte

var (
	translations      *Translator
	translationsMutex sync.RWMutex
)

// Translator resolves translation keys per locale.
// The source is a JSON object with one object per locale at the top level.
type Translator struct {
	locales    []string
	containers map[string]*gabs.Container
	matcher    language.Matcher
}

func NewTranslator(raw []byte) (*Translator, error) {
	json, err := gabs.ParseJSON(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parsing translations failed")
	}
	children, err := json.ChildrenMap()
	if err != nil {
		return nil, errors.Wrap(err, "translations are not an object of locales")
	}
	if _, ok := children[DefaultLocale]; !ok {
		return nil, errors.New("translations miss the default locale " + DefaultLocale)
	}

	translator := &Translator{
		locales:    []string{DefaultLocale},
		containers: children,
	}
	for locale := range children {
		if locale != DefaultLocale {
			translator.locales = append(translator.locales, locale)
		}
	}
	sort.Strings(translator.locales[1:])

	// the first tag is the fallback of the matcher
	tags := make([]language.Tag, 0, len(translator.locales))
	for _, locale := range translator.locales {
		tags = append(tags, language.Make(locale))
	}
	translator.matcher = language.NewMatcher(tags)

	return translator, nil
}

// Match returns the supported locale closest to locale
func (t *Translator) Match(locale string) string {
	if locale == "" {
		return DefaultLocale
	}
	_, index, confidence := t.matcher.Match(language.Make(locale))
	if confidence == language.No {
		return DefaultLocale
	}
	return t.locales[index]
}

// Locales are the supported locales, the default locale first
func (t *Translator) Locales() []string {
	return append([]string{}, t.locales...)
}

// Text resolves id in the closest locale, falling back to the default locale and finally to id itself
func (t *Translator) Text(locale, id string) string {
	item := t.lookup(t.Match(locale), id)
	if item == nil {
		item = t.lookup(DefaultLocale, id)
	}
	if item == nil {
		return id
	}

	// If this is an object return __
	if _, ok := item.Data().(map[string]interface{}); ok {
		item = item.Path("__")
	}

	switch value := item.Data().(type) {
	case string:
		return value
	// If this is an array return a random item
	case []interface{}:
		if len(value) > 0 {
			if text, ok := value[rand.Intn(len(value))].(string); ok {
				return text
			}
		}
	}
	return id
}

func (t *Translator) lookup(locale, id string) *gabs.Container {
	container, ok := t.containers[locale]
	if !ok || !container.ExistsP(id) {
		return nil
	}
	return container.Path(id)
}

// LoadTranslations parses the bundled translations
func LoadTranslations() {
	translator, err := NewTranslator(i18nAsset)
	Relax(err)

	translationsMutex.Lock()
	translations = translator
	translationsMutex.Unlock()
}

func getTranslator() *Translator {
	translationsMutex.RLock()
	translator := translations
	translationsMutex.RUnlock()

	if translator == nil {
		LoadTranslations()
		return getTranslator()
	}
	return translator
}

func GetText(locale, id string) string {
	return getTranslator().Text(locale, id)
}

func GetTextF(locale, id string, replacements ...interface{}) string {
	return fmt.Sprintf(GetText(locale, id), replacements...)
}

func SupportedLocales() []string {
	return getTranslator().Locales()
}

// MatchLocale returns the supported locale closest to locale
func MatchLocale(locale string) string {
	return getTranslator().Match(locale)
}

// InteractionLocale is the locale of the client that sent the interaction
func InteractionLocale(interaction *discordgo.InteractionCreate) string {
	if interaction == nil || interaction.Interaction == nil {
		return DefaultLocale
	}
	return string(interaction.Locale)
}
