package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypePasswordResetEmail = "email:password_reset"
	TypeWelcomeEmail       = "email:welcome"
)

// PasswordResetEmailPayload carries the raw reset token to deliver.
// The token only ever exists here and in the outbound email.
type PasswordResetEmailPayload struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// WelcomeEmailPayload greets a newly registered account.
type WelcomeEmailPayload struct {
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// NewPasswordResetEmailTask creates a task to deliver a reset link
func NewPasswordResetEmailTask(email, token string) (*asynq.Task, error) {
	payload, err := json.Marshal(PasswordResetEmailPayload{
		Email: email,
		Token: token,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypePasswordResetEmail, payload, asynq.Queue("critical")), nil
}

// NewWelcomeEmailTask creates a task to deliver a welcome email
func NewWelcomeEmailTask(email, fullName string) (*asynq.Task, error) {
	payload, err := json.Marshal(WelcomeEmailPayload{
		Email:    email,
		FullName: fullName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeWelcomeEmail, payload, asynq.Queue("low")), nil
}

// ParsePasswordResetEmailPayload parses the payload from an Asynq task
func ParsePasswordResetEmailPayload(task *asynq.Task) (PasswordResetEmailPayload, error) {
	var payload PasswordResetEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

// ParseWelcomeEmailPayload parses the payload from an Asynq task
func ParseWelcomeEmailPayload(task *asynq.Task) (WelcomeEmailPayload, error) {
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
