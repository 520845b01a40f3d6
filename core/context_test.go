package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageContext(t *testing.T) {
	_, ok := LanguageFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithLanguage(context.Background(), "Arabic")
	lang, ok := LanguageFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Arabic", lang)

	_, ok = LanguageFromContext(WithLanguage(context.Background(), ""))
	assert.False(t, ok)
}
