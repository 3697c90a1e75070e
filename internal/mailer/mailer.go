// Package mailer delivers outgoing application mail. The only implementation
// is a development outbox that writes each message to a file; production
// deployments are expected to replace it behind the Sender interface.
package mailer

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sender delivers a single message.
type Sender interface {
	Send(to, subject, body string) error
}

// OutboxMailer writes messages to files in a local directory. Useful for
// development and tests; nothing is actually sent.
type OutboxMailer struct {
	dir  string
	from string
}

// NewOutboxMailer creates an outbox mailer, creating the directory if needed.
func NewOutboxMailer(dir, from string) (*OutboxMailer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create outbox directory: %w", err)
	}
	return &OutboxMailer{dir: dir, from: from}, nil
}

// Send writes the message to a timestamped file in the outbox directory.
func (m *OutboxMailer) Send(to, subject, body string) error {
	name := fmt.Sprintf("%d-%s.eml", time.Now().UnixNano(), sanitizeAddr(to))
	path := filepath.Join(m.dir, name)

	content := fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\nDate: %s\n\n%s\n",
		m.from, to, subject, time.Now().Format(time.RFC1123Z), body)

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	log.Printf("Mail written to outbox: %s", path)
	return nil
}

func sanitizeAddr(addr string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, addr)
}
