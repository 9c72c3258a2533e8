package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/vector-skill/academy/internal/mailer"
	"github.com/vector-skill/academy/internal/tasks"
)

// HandlePasswordResetEmail delivers a password reset email
func HandlePasswordResetEmail(ctx context.Context, t *asynq.Task, m mailer.Mailer, log zerolog.Logger) error {
	payload, err := tasks.ParsePasswordResetEmailPayload(t)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(
		"We received a request to reset your Vector Skill Academy password.\n\n"+
			"Run the following command to set a new password:\n\n"+
			"    vsa reset-password --token %s\n\n"+
			"This token expires in 30 minutes. If you did not request a reset,\n"+
			"you can ignore this email.\n",
		payload.Token,
	)

	if err := m.Send(payload.Email, "Reset your password", body); err != nil {
		log.Error().Err(err).Str("email", payload.Email).Msg("Failed to send reset email")
		return err
	}

	log.Info().Str("email", payload.Email).Msg("Password reset email sent")
	return nil
}

// HandleWelcomeEmail delivers a welcome email to a new account
func HandleWelcomeEmail(ctx context.Context, t *asynq.Task, m mailer.Mailer, log zerolog.Logger) error {
	payload, err := tasks.ParseWelcomeEmailPayload(t)
	if err != nil {
		return err
	}

	greeting := "Welcome to Vector Skill Academy!"
	if payload.FullName != "" {
		greeting = fmt.Sprintf("Welcome to Vector Skill Academy, %s!", payload.FullName)
	}

	body := greeting + "\n\nYour account is ready. Sign in any time with 'vsa login'.\n"

	if err := m.Send(payload.Email, "Welcome to Vector Skill Academy", body); err != nil {
		log.Error().Err(err).Str("email", payload.Email).Msg("Failed to send welcome email")
		return err
	}

	log.Info().Str("email", payload.Email).Msg("Welcome email sent")
	return nil
}
