package testutil

import (
	"context"
	"sync"

	"github.com/nkiryanov/bazario/internal/models"
)

type SentMail struct {
	Purpose models.Purpose
	To      string
	Token   string
}

// Mailer that keeps sent mails in memory
// If Err is set it returned on every send and nothing kept
type Mailbox struct {
	Err error

	mu    sync.Mutex
	mails []SentMail
}

func (m *Mailbox) SendEmailVerification(_ context.Context, user models.User, token string) error {
	return m.keep(SentMail{Purpose: models.PurposeEmailVerification, To: user.Email, Token: token})
}

func (m *Mailbox) SendPasswordRestore(_ context.Context, user models.User, token string) error {
	return m.keep(SentMail{Purpose: models.PurposePasswordRestore, To: user.Email, Token: token})
}

func (m *Mailbox) Mails() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.mails...)
}

// Token of the last mail sent with the purpose, empty if there is no such mail
func (m *Mailbox) LastToken(purpose models.Purpose) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.mails) - 1; i >= 0; i-- {
		if m.mails[i].Purpose == purpose {
			return m.mails[i].Token
		}
	}
	return ""
}

func (m *Mailbox) keep(mail SentMail) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, mail)
	return nil
}
