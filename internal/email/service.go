package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/agilpa/solicitation-api/internal/config"
)

// Service sends notification emails. Delivery is best effort and only
// used for action-required notifications; the in-app row is the record.
type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}

type service struct {
	cfg    config.EmailConfig
	dialer *gomail.Dialer
}

func NewService(cfg config.EmailConfig) Service {
	return &service{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

func (s *service) Send(ctx context.Context, to, subject, body string) error {
	if !s.cfg.Enabled {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
