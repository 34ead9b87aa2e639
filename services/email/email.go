// Package emailsvc sends emails through the console or SendGrid.
package emailsvc

import (
	"github.com/campoalegre/unibus/core"
)

// Providers
const (
	ProviderConsole  = "console"
	ProviderSendgrid = "sendgrid"
)

// New returns the email service selected by conf.Email.Provider, the console one by default.
func New(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Email.Provider == ProviderSendgrid && conf.Email.SendgridAPIKey != "" {
		return NewSendgridService(conf, logger)
	}
	return NewConsoleService(conf, logger)
}
