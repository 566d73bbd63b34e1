package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ErrSettingNotNumeric rejects writes to numeric setting keys that
// would not parse back. Catching it at write time beats a silent
// fallback to defaults when the editor reads the key later.
var ErrSettingNotNumeric = errors.New("setting value must be a positive integer")

// numericSettingKeys lists keys whose values other components parse
// as integers.
var numericSettingKeys = map[string]bool{
	model.SettingKeyIdleWindowMS:      true,
	model.SettingKeyInitialLoadMS:     true,
	model.SettingKeyRevisionKeepLimit: true,
}

type SettingService struct {
	settings *repository.SettingRepository
	log      zerolog.Logger
}

func NewSettingService(settings *repository.SettingRepository, log zerolog.Logger) *SettingService {
	return &SettingService{
		settings: settings,
		log:      log.With().Str("component", "setting_service").Logger(),
	}
}

func (s *SettingService) GetAllSettings(ctx context.Context) (map[string]string, error) {
	values, err := s.settings.All(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load settings")
		return nil, err
	}
	return values, nil
}

// UpdateSettings upserts a batch of settings. The whole batch is
// validated before any row is written so a bad value cannot leave the
// batch half applied.
func (s *SettingService) UpdateSettings(ctx context.Context, values map[string]string) error {
	for key, value := range values {
		if !numericSettingKeys[key] {
			continue
		}
		if n, err := strconv.Atoi(value); err != nil || n <= 0 {
			return fmt.Errorf("%s: %w", key, ErrSettingNotNumeric)
		}
	}

	// Settings are low volume, per-key upserts are fine.
	for key, value := range values {
		if err := s.settings.Upsert(ctx, key, value); err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("Failed to update setting")
			return err
		}
	}
	return nil
}
