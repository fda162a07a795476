package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"supporting-smart-system/config"
)

// Client SMTP 邮件发送
type Client struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
	logger *zap.Logger
}

// New 创建 SMTP 客户端
func New(cfg config.MailConfig, logger *zap.Logger) *Client {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{
		ServerName: cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}

	return &Client{cfg: cfg, dialer: dialer, logger: logger}
}

// Send 发送纯文本邮件；gomail 不支持 ctx，调用前检查是否已取消
func (c *Client) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage(
		gomail.SetCharset("UTF-8"),
		gomail.SetEncoding(gomail.Base64),
	)
	msg.SetAddressHeader("From", c.cfg.From, c.cfg.FromName)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := c.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	c.logger.Info("邮件已发送", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}

// Noop 邮件未启用时的占位实现
type Noop struct{}

// Send 直接返回 nil
func (Noop) Send(context.Context, []string, string, string) error { return nil }
