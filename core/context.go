package core

import "context"

type languageKey struct{}

// WithLanguage returns a context carrying the dialogue language of a run.
func WithLanguage(ctx context.Context, language string) context.Context {
	return context.WithValue(ctx, languageKey{}, language)
}

// LanguageFromContext returns the dialogue language stored by WithLanguage.
func LanguageFromContext(ctx context.Context) (string, bool) {
	language, ok := ctx.Value(languageKey{}).(string)
	return language, ok && language != ""
}
