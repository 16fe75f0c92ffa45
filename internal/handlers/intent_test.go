package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-dslr-studio/internal/photoshoot"
	"ai-dslr-studio/internal/session"
)

func TestParseShootArgs(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		mode    *photoshoot.Mode
		backend *photoshoot.Backend
		unknown []string
	}{
		{name: "empty", text: "  "},
		{name: "style", text: "Formal", mode: ptr(photoshoot.SingleStyle(photoshoot.StyleFormal))},
		{name: "compare and backend", text: "compare, seedream", mode: ptr(photoshoot.CompareAll()), backend: ptr(photoshoot.BackendSeedream)},
		{name: "key value", text: "style=artistic engine=gemini", mode: ptr(photoshoot.SingleStyle(photoshoot.StyleArtistic)), backend: ptr(photoshoot.BackendGemini)},
		{name: "later wins", text: "casual formal", mode: ptr(photoshoot.SingleStyle(photoshoot.StyleFormal))},
		{name: "unknown", text: "#custom wat size=xl", mode: ptr(photoshoot.SingleStyle(photoshoot.StyleCustom)), unknown: []string{"wat", "size"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseShootArgs(tt.text)
			assert.Equal(t, tt.mode, got.Mode)
			assert.Equal(t, tt.backend, got.Backend)
			assert.Equal(t, tt.unknown, got.Unknown)
		})
	}
}

func TestCallbackData(t *testing.T) {
	data := cb(42, "backend", "seedream")
	assert.Equal(t, "ps:42:backend:seedream", data)

	owner, action, args, ok := parseCallback(data)
	require.True(t, ok)
	assert.Equal(t, int64(42), owner)
	assert.Equal(t, "backend", action)
	assert.Equal(t, []string{"seedream"}, args)

	for _, bad := range []string{"", "pv:1:x", "ps:abc:x", "ps:1"} {
		_, _, _, ok := parseCallback(bad)
		assert.False(t, ok, bad)
	}
}

func TestWizardKeyboardFitsCallbackLimit(t *testing.T) {
	w := session.Wizard{Mode: photoshoot.CompareAll(), Backend: photoshoot.BackendSeedream}
	kb := wizardKeyboard(-1001234567890, w)

	var selected int
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			require.NotNil(t, btn.CallbackData)
			assert.LessOrEqual(t, len(*btn.CallbackData), 64)
			if strings.HasPrefix(btn.Text, "✅") {
				selected++
			}
		}
	}
	assert.Equal(t, 2, selected, "compare and the backend are marked")
}

func TestShotToken(t *testing.T) {
	id := photoshoot.ShotID("0b8c5a52-4c52-4fd0-9a43-13b1f0a2c6a1", photoshoot.StyleArtistic, photoshoot.ShotKneesUp)
	assert.Equal(t, shotToken(id), shotToken(id))
	assert.NotEqual(t, shotToken(id), shotToken(id+"x"))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err    error
		prefix string
	}{
		{&photoshoot.ConfigurationError{Backend: photoshoot.BackendGemini, Credential: "GEMINI_API_KEY"}, "⚙️"},
		{&photoshoot.GenerationRefusedError{}, "🚫"},
		{fmt.Errorf("%w: portrait image is required", photoshoot.ErrInvalidRequest), "⚠️ portrait image is required"},
		{context.DeadlineExceeded, "⌛"},
		{&photoshoot.BackendError{Err: errors.New("500")}, "❌"},
	}
	for _, tt := range tests {
		assert.Contains(t, userMessage(tt.err), tt.prefix)
	}
}

func TestWizardText(t *testing.T) {
	img := photoshoot.NewImage([]byte("x"), "image/jpeg")
	w := session.Wizard{
		Portrait: &img,
		Mode:     photoshoot.SingleStyle(photoshoot.StyleCustom),
		Backend:  photoshoot.BackendGemini,
	}
	text := wizardText(w)
	assert.Contains(t, text, "Style: Custom")
	assert.Contains(t, text, "Outfit: ➖")
	assert.Contains(t, text, "Shots: 3")
	assert.Contains(t, text, "send the background scene")

	w.Mode = photoshoot.CompareAll()
	assert.Contains(t, wizardText(w), "Compare (Casual, Formal, Artistic)")
	assert.Contains(t, wizardText(w), "Shots: 9")
}

func ptr[T any](v T) *T {
	return &v
}
