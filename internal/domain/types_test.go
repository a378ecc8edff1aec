package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidgetURI(t *testing.T) {
	assert.Equal(t, "ui://widget/weather-card.html", WidgetURI("weather-card"))
}

func TestTypeFromWidgetURI(t *testing.T) {
	componentType, ok := TypeFromWidgetURI("ui://widget/weather-card.html")
	require.True(t, ok)
	assert.Equal(t, "weather-card", componentType)
}

func TestTypeFromWidgetURIRejectsForeignURIs(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"wrong scheme", "file://widget/card.html"},
		{"wrong prefix", "ui://other/card.html"},
		{"missing suffix", "ui://widget/card"},
		{"empty type", "ui://widget/.html"},
		{"nested path", "ui://widget/a/b.html"},
		{"empty", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := TypeFromWidgetURI(tc.uri)
			assert.False(t, ok)
		})
	}
}

func TestWidgetURIRoundTrip(t *testing.T) {
	for _, componentType := range []string{"card", "weather-card", "kanban_board"} {
		parsed, ok := TypeFromWidgetURI(WidgetURI(componentType))
		require.True(t, ok)
		assert.Equal(t, componentType, parsed)
	}
}

func TestNewClientSession(t *testing.T) {
	a := NewClientSession("agent-a")
	b := NewClientSession("agent-b")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Connected)
}
