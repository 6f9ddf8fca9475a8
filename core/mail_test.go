package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmailTemplates(t *testing.T) {
	parseTemplates(nil)

	for _, name := range []string{"registration_approved", "registration_rejected"} {
		entry, ok := templates[name]
		require.True(t, ok, "missing template %q", name)
		assert.Contains(t, entry, ".txt")
		assert.Contains(t, entry, ".gohtml")
	}

	// the shared layout is not a message template of its own
	_, ok := templates["base"]
	assert.False(t, ok)
}

func TestEmailMessage_Render(t *testing.T) {
	parseTemplates(nil)

	t.Run("templated message", func(t *testing.T) {
		msg := &EmailMessage{
			To:           []mail.Address{{Address: "john@test.cd"}},
			Subject:      "Registration approved",
			TemplateName: "registration_approved",
			TemplateData: map[string]interface{}{
				"GuardianName": "John Doe",
				"ChildName":    "Jane Doe",
				"SchoolName":   "Little Oaks",
				"StudentCode":  "LIT-21-0001",
			},
		}

		require.NoError(t, msg.Render())
		assert.True(t, msg.HasContent())
		assert.Contains(t, msg.TextContent, "Jane Doe")
		assert.Contains(t, msg.TextContent, "LIT-21-0001")
		assert.Contains(t, msg.HTMLContent, "<strong>Jane Doe</strong>")
	})

	t.Run("plain body", func(t *testing.T) {
		msg := &EmailMessage{Subject: "hi", BodyStr: "plain content"}
		require.NoError(t, msg.Render())
		assert.Equal(t, "plain content", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
	})
}
