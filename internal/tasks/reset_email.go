package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/identity/internal/mailer"
)

// ResetEmailTask delivers a password reset message to a user.
type ResetEmailTask struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// Config returns the queue configuration for reset email tasks.
func (t ResetEmailTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reset_email",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			// Never retain task data: it carries a live reset token.
			Data: nil,
		},
	}
}

// ResetEmailProcessor creates a processor function for ResetEmailTask.
func ResetEmailProcessor(sender mailer.Sender) backlite.QueueProcessor[ResetEmailTask] {
	return func(ctx context.Context, task ResetEmailTask) error {
		if sender == nil {
			return fmt.Errorf("mailer not configured")
		}

		body := fmt.Sprintf(
			"A password reset was requested for your account.\n\n"+
				"Use this token to choose a new password: %s\n\n"+
				"The token expires shortly. If you did not request a reset, ignore this message.",
			task.Token)

		if err := sender.Send(task.Email, "Password reset", body); err != nil {
			return fmt.Errorf("send reset email to %s: %w", task.Email, err)
		}

		log.Printf("[TASK] Sent password reset email to %s", task.Email)
		return nil
	}
}

// NewResetEmailQueue creates a backlite queue for reset email tasks.
func NewResetEmailQueue(sender mailer.Sender) backlite.Queue {
	return backlite.NewQueue(ResetEmailProcessor(sender))
}

// ResetEnqueuer adapts the task client to the authenticator's mailer
// contract: enqueuing records the work, workers deliver it.
type ResetEnqueuer struct {
	client *Client
}

// NewResetEnqueuer creates an enqueuer over the task client.
func NewResetEnqueuer(client *Client) *ResetEnqueuer {
	return &ResetEnqueuer{client: client}
}

// EnqueueResetEmail queues a password reset message for delivery.
func (e *ResetEnqueuer) EnqueueResetEmail(email, token string) error {
	_, err := e.client.Add(ResetEmailTask{Email: email, Token: token}).Save()
	return err
}
