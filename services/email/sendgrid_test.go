package emailsvc

import (
	"net/http"
	"net/mail"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campoalegre/unibus/core"
)

func newTestSendgrid(t *testing.T, statuses ...int) (*sendgridService, *[]rest.Request) {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Email.SendgridAPIKey = "key"
	svc := NewSendgridService(conf, core.NopLogger{}).(*sendgridService)
	svc.backoff = 0

	var reqs []rest.Request
	svc.api = func(req rest.Request) (*rest.Response, error) {
		reqs = append(reqs, req)
		status := http.StatusAccepted
		if i := len(reqs) - 1; i < len(statuses) {
			status = statuses[i]
		}
		return &rest.Response{StatusCode: status, Body: http.StatusText(status)}, nil
	}
	return svc, &reqs
}

func TestSendgridService_prepare(t *testing.T) {
	svc, _ := newTestSendgrid(t)

	msg := core.EmailMessage{
		To:           []mail.Address{{Name: "Carlos", Address: "carlos@example.com"}},
		Bcc:          []mail.Address{{Address: "ops@example.com"}},
		Subject:      "Schedule for 2025-03-10",
		TemplateName: "driver_schedule",
		TextContent:  "your trips",
	}
	require.NoError(t, msg.Attach(strings.NewReader("BEGIN:VCALENDAR"), "schedule.ics", "text/calendar"))

	m := svc.prepare(msg)
	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[UniBus] Schedule for 2025-03-10", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "carlos@example.com", p.To[0].Address)
	assert.Len(t, p.BCC, 1)
	assert.Empty(t, p.CC)

	assert.Equal(t, []string{"driver_schedule"}, m.Categories)
	require.Len(t, m.Content, 1, "no html part without html content")
	assert.Equal(t, "text/plain", m.Content[0].Type)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "schedule.ics", m.Attachments[0].Filename)
	assert.Equal(t, "attachment", m.Attachments[0].Disposition)
}

func TestSendgridService_deliver(t *testing.T) {
	msg := func() *core.EmailMessage {
		return &core.EmailMessage{To: []mail.Address{{Address: "a@example.com"}}, Subject: "hi", BodyStr: "hello"}
	}

	tests := []struct {
		name         string
		statuses     []int
		msg          *core.EmailMessage
		wantErr      bool
		wantAttempts int
	}{
		{name: "accepted", msg: msg(), wantAttempts: 1},
		{name: "retried after rate limit", statuses: []int{http.StatusTooManyRequests, http.StatusBadGateway}, msg: msg(), wantAttempts: 3},
		{name: "gives up", statuses: []int{500, 500, 500}, msg: msg(), wantErr: true, wantAttempts: 3},
		{name: "rejected", statuses: []int{http.StatusBadRequest}, msg: msg(), wantErr: true, wantAttempts: 1},
		{name: "no recipient", msg: &core.EmailMessage{Subject: "lost", BodyStr: "x"}, wantAttempts: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, reqs := newTestSendgrid(t, tt.statuses...)
			err := svc.deliver(tt.msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, *reqs, tt.wantAttempts)
			for _, req := range *reqs {
				assert.Equal(t, rest.Method(http.MethodPost), req.Method)
				assert.Equal(t, "Bearer key", req.Headers["Authorization"])
				assert.Contains(t, string(req.Body), `"subject":"[UniBus] hi"`)
			}
		})
	}
}
