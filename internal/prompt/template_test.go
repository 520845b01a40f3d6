package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	out, err := Render("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = Render("Answer in {{.language}}.", map[string]any{"language": "Arabic"})
	require.NoError(t, err)
	assert.Equal(t, "Answer in Arabic.", out)

	out, err = Render(`Answer in {{default "Arabic" .language | upper}}.`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Answer in ARABIC.", out)

	_, err = Render("{{.language", nil)
	assert.Error(t, err)
}
