package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"carecircle/pkg/circuitbreaker"
	"carecircle/pkg/config"
)

// Mailer 投递提醒类通知的邮件
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NopMailer SMTP 未启用时使用
type NopMailer struct{}

func (NopMailer) Send(ctx context.Context, to, subject, body string) error { return nil }

type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	breaker *circuitbreaker.Breaker
	logger  *zap.Logger
}

// NewMailer 根据配置返回 SMTP 或空实现
func NewMailer(cfg config.SMTPConfig, logger *zap.Logger) Mailer {
	if !cfg.Enabled {
		return NopMailer{}
	}
	return &SMTPMailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	err := m.breaker.Execute(func() error {
		return m.dialer.DialAndSend(msg)
	})
	if err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	m.logger.Info("Reminder mail sent", zap.String("to", to))
	return nil
}
