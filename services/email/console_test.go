package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campoalegre/unibus/core"
)

func TestConsoleServiceMock(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf)

	withBody := &core.EmailMessage{To: []mail.Address{{Address: "a@example.com"}}, Subject: "hello", BodyStr: "hi there"}
	noRecipient := &core.EmailMessage{Subject: "lost", BodyStr: "nobody"}
	empty := &core.EmailMessage{To: []mail.Address{{Address: "b@example.com"}}}
	svc.SendMessages(withBody, noRecipient, empty)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "hi there", sent[0].TextContent)
}

func TestConsoleService_build(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf)

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "José", Address: "jose@example.com"}},
		Subject:     "Schedule",
		TextContent: "your trips",
	}
	require.NoError(t, msg.Attach(strings.NewReader("BEGIN:VCALENDAR"), "schedule.ics", "text/calendar"))

	body, err := svc.build(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [UniBus] Schedule\r\n")
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, "filename=schedule.ics")
	assert.Contains(t, body, "your trips")
}

func TestNew(t *testing.T) {
	conf := core.NewTestConfig()
	_, ok := New(conf, core.NopLogger{}).(*consoleService)
	assert.True(t, ok)

	conf.Email.Provider = ProviderSendgrid
	_, ok = New(conf, core.NopLogger{}).(*consoleService)
	assert.True(t, ok, "no api key")

	conf.Email.SendgridAPIKey = "key"
	_, ok = New(conf, core.NopLogger{}).(*sendgridService)
	assert.True(t, ok)
}
