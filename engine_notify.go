package goVerify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/MrEthical07/goVerify/notify"
)

const (
	kindInvite   = "invite"
	kindRegister = "register"
	kindReset    = "reset"
	kindCode     = "code"
)

// confirmLink builds the link a user follows to finish action. Without a
// configured base URL the token is returned bare.
func (e *Engine) confirmLink(action Action, email, tok string) string {
	base := e.config.Delivery.LinkBaseURL
	if base == "" {
		return tok
	}
	q := url.Values{}
	q.Set("action", string(action))
	q.Set("email", email)
	q.Set("token", tok)
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

func (e *Engine) sendInvite(ctx context.Context, acct Account, tempPassword, tok string) {
	product := e.config.Delivery.ProductName
	var body strings.Builder
	fmt.Fprintf(&body, "You have been invited to %s.\n\n", product)
	fmt.Fprintf(&body, "Temporary password: %s\n", tempPassword)
	fmt.Fprintf(&body, "Accept the invitation: %s\n", e.confirmLink(ActionInvite, acct.Email, tok))
	e.send(ctx, notify.Message{
		Channel: notify.Email,
		Kind:    kindInvite,
		To:      acct.Email,
		Subject: product + " invitation",
		Body:    body.String(),
	})
}

func (e *Engine) sendRegistration(ctx context.Context, acct Account, tok string) {
	product := e.config.Delivery.ProductName
	e.send(ctx, notify.Message{
		Channel: notify.Email,
		Kind:    kindRegister,
		To:      acct.Email,
		Subject: "Confirm your " + product + " account",
		Body:    fmt.Sprintf("Confirm your registration: %s\n", e.confirmLink(ActionRegister, acct.Email, tok)),
	})
}

func (e *Engine) sendReset(ctx context.Context, acct Account, tempPassword, tok string) {
	product := e.config.Delivery.ProductName
	var body strings.Builder
	fmt.Fprintf(&body, "A password reset was requested for your %s account.\n\n", product)
	fmt.Fprintf(&body, "Temporary password: %s\n", tempPassword)
	fmt.Fprintf(&body, "Reset your password: %s\n", e.confirmLink(ActionReset, acct.Email, tok))
	e.send(ctx, notify.Message{
		Channel: notify.Email,
		Kind:    kindReset,
		To:      acct.Email,
		Subject: product + " password reset",
		Body:    body.String(),
	})
}

func (e *Engine) sendCodeText(ctx context.Context, phone, code string) {
	e.send(ctx, notify.Message{
		Channel: notify.SMS,
		Kind:    kindCode,
		To:      phone,
		Body:    code + " is your " + e.config.Delivery.ProductName + " code",
	})
}
