// Package mailer sends transactional email, currently only password resets.
package mailer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// Options for the SMTP mailer.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Logger   *zap.SugaredLogger
}

type Mailer struct {
	opt    *Options
	dialer *gomail.Dialer
}

func NewMailer(opt *Options) (*Mailer, error) {
	switch {
	case opt == nil:
		return nil, errors.New("missing options")
	case opt.Host == "":
		return nil, errors.New("missing smtp host")
	case opt.From == "":
		return nil, errors.New("missing from address")
	case opt.Logger == nil:
		return nil, errors.New("missing logger")
	default:
		if opt.Port == 0 {
			opt.Port = 587
		}
	}

	return &Mailer{
		opt:    opt,
		dialer: gomail.NewDialer(opt.Host, opt.Port, opt.Username, opt.Password),
	}, nil
}

// SendPasswordReset emails a reset token to the user.
func (m *Mailer) SendPasswordReset(to, token string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.opt.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "ChapFarm password reset")
	msg.SetBody("text/plain", fmt.Sprintf(
		"A password reset was requested for your ChapFarm account.\n\n"+
			"Reset token: %s\n\n"+
			"The token expires in 30 minutes. If you did not request this, ignore this email.", token))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	m.opt.Logger.Infow("password reset email sent", "to", to)
	return nil
}
