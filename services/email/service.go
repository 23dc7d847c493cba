// Package emailsvc implements core.EmailService on the console, sendgrid or an SMTP server.
package emailsvc

import (
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
)

// NewService returns the backend named by email.backend.
func NewService(conf *core.Config, logger core.Logger) (core.EmailService, error) {
	switch conf.Email.Backend {
	case "", "console":
		return NewConsoleService(conf, logger), nil
	case "sendgrid":
		return NewSendgridService(conf, logger), nil
	case "smtp":
		return NewSMTPService(conf, logger), nil
	}
	return nil, errors.Errorf("unknown email backend %q", conf.Email.Backend)
}
