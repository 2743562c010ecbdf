package goVerify

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goVerify/pii"
)

// EncryptContact seals c under the PII key.
func (e *Engine) EncryptContact(c pii.Contact) ([]byte, error) {
	if e.cipher == nil {
		return nil, ErrPIIDisabled
	}
	return e.cipher.Encrypt(c)
}

// DecryptContact opens a blob produced by EncryptContact. A tampered blob or
// one sealed under another key returns an error wrapping pii.ErrCiphertext;
// no partial contact is ever returned.
func (e *Engine) DecryptContact(blob []byte) (pii.Contact, error) {
	if e.cipher == nil {
		return pii.Contact{}, ErrPIIDisabled
	}
	var c pii.Contact
	if err := e.cipher.Decrypt(blob, &c); err != nil {
		return pii.Contact{}, fmt.Errorf("decrypt contact: %w", err)
	}
	return c, nil
}

// Contact returns the decrypted contact data of an account. An account with
// no stored contact returns an empty Contact.
func (e *Engine) Contact(ctx context.Context, accountID string) (pii.Contact, error) {
	acct, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return pii.Contact{}, err
	}
	return e.accountContact(acct)
}

// UpdateContact replaces the stored contact data of an account.
func (e *Engine) UpdateContact(ctx context.Context, accountID string, c pii.Contact) error {
	if e.cipher == nil {
		return ErrPIIDisabled
	}
	acct, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if acct.Method == AuthPasswordSMS && c.Phone == "" {
		return fmt.Errorf("%w: sms account requires a phone", ErrValidation)
	}
	sealed, err := e.sealContact(c)
	if err != nil {
		return err
	}
	acct.Contact = sealed
	if err := e.saveAccount(ctx, acct); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventContactUpdated, true, accountID, nil, nil)
	return nil
}

// sealContact returns nil for an empty contact.
func (e *Engine) sealContact(c pii.Contact) ([]byte, error) {
	if c.Empty() {
		return nil, nil
	}
	return e.EncryptContact(c)
}

func (e *Engine) accountContact(acct Account) (pii.Contact, error) {
	if len(acct.Contact) == 0 {
		return pii.Contact{}, nil
	}
	return e.DecryptContact(acct.Contact)
}
