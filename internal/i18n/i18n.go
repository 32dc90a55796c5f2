package i18n

import (
	"encoding/json"
	"io/fs"

	"github.com/jeandeaual/go-locale"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var (
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
)

// Init initializes the i18n bundle with every locales/*.json file in localeFS
func Init(localeFS fs.FS, lang string) error {
	bundle = i18n.NewBundle(language.AmericanEnglish)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := fs.Glob(localeFS, "locales/*.json")
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(localeFS, f); err != nil {
			return err
		}
	}

	localizer = i18n.NewLocalizer(bundle, lang)
	return nil
}

// ResolveLocale maps the configured locale to a language tag, detecting the
// system locale for "auto".
func ResolveLocale(configured string) string {
	if configured != "" && configured != "auto" {
		return configured
	}
	userLocale, err := locale.GetLocale()
	if err != nil || userLocale == "" {
		return "en-US"
	}
	return userLocale
}

// T translates a message by its ID with optional template data and plural count
func T(messageID string, templateData map[string]any, pluralCount ...int) string {
	if localizer == nil {
		return messageID
	}
	config := &i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: templateData,
	}
	if len(pluralCount) > 0 {
		config.PluralCount = pluralCount[0]
	}

	// A message missing from the active locale comes back in the default
	// language along with a MessageNotFoundErr.
	msg, err := localizer.Localize(config)
	if err != nil && msg == "" {
		return messageID
	}
	return msg
}

// SetLocale changes the current locale
func SetLocale(lang string) {
	if bundle == nil {
		return
	}
	localizer = i18n.NewLocalizer(bundle, lang)
}
