package workers

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vector-skill/academy/internal/models"
)

// StartResetTokenCleanup deletes expired password reset tokens on the
// given cron schedule. Runs until the process exits.
func StartResetTokenCleanup(db *gorm.DB, schedule string, log zerolog.Logger) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	spec, err := parser.Parse(schedule)
	if err != nil {
		log.Error().Err(err).Str("schedule", schedule).Msg("Invalid cleanup schedule - cleanup disabled")
		return
	}

	log.Info().Str("schedule", schedule).Msg("Starting reset token cleanup scheduler")

	for {
		now := time.Now()
		next := spec.Next(now)
		time.Sleep(next.Sub(now))

		result := db.Where("expires_at < ?", time.Now()).Delete(&models.PasswordResetToken{})
		if result.Error != nil {
			log.Error().Err(result.Error).Msg("Failed to delete expired reset tokens")
			continue
		}
		if result.RowsAffected > 0 {
			log.Info().Int64("deleted", result.RowsAffected).Msg("Expired reset tokens deleted")
		}
	}
}
