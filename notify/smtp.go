package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPConfig configures SMTPNotifier.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// SMTPNotifier sends email messages through an SMTP relay.
type SMTPNotifier struct {
	config   SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier validates cfg and returns an SMTPNotifier.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("smtp host and from address are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPNotifier{config: cfg, sendMail: smtp.SendMail}, nil
}

// Deliver implements Notifier for the email channel.
func (n *SMTPNotifier) Deliver(ctx context.Context, msg Message) error {
	if msg.Channel != Email {
		return ErrUnsupportedChannel
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return errors.New("header injection in notification")
	}

	from := n.config.From
	if n.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", n.config.FromName, n.config.From)
	}
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		from, msg.To, msg.Subject, msg.Body)

	var auth smtp.Auth
	if n.config.User != "" {
		auth = smtp.PlainAuth("", n.config.User, n.config.Password, n.config.Host)
	}
	addr := n.config.Host + ":" + strconv.Itoa(n.config.Port)
	if err := n.sendMail(addr, auth, n.config.From, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
