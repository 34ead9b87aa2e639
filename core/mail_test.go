package core

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailTemplatesFS(t *testing.T) {
	for _, name := range []string{"_base.txt", "_base.gohtml", "driver_schedule.txt", "driver_schedule.gohtml"} {
		_, err := fs.Stat(emailTemplatesFS, "templates/email/"+name)
		assert.NoError(t, err, name)
	}
}

func TestEmailMessage_Render(t *testing.T) {
	type tripLine struct{ DepartureTime, RouteName, VehiclePlate string }

	msg := &EmailMessage{
		TemplateName: "driver_schedule",
		TemplateData: struct {
			DriverName string
			Date       string
			Trips      []tripLine
		}{
			DriverName: "Carlos Souza",
			Date:       "2025-03-10",
			Trips:      []tripLine{{"06:30", "Campus Norte", "ABC-1234"}},
		},
	}
	require.NoError(t, msg.Render("UniBus"))

	assert.True(t, msg.HasContent())
	assert.Contains(t, msg.TextContent, "Hello Carlos Souza,")
	assert.Contains(t, msg.TextContent, "- 06:30 Campus Norte (ABC-1234)")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(msg.TextContent), "UniBus"), "base layout footer")
	assert.Contains(t, msg.HTMLContent, "<strong>2025-03-10</strong>")
	assert.Contains(t, msg.HTMLContent, "UniBus")

	plain := &EmailMessage{BodyStr: "hi"}
	require.NoError(t, plain.Render("UniBus"))
	assert.Equal(t, "hi", plain.TextContent)
}
