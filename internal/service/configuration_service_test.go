package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtdacademy/rtd-connect-api/internal/dto"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	appErrors "github.com/rtdacademy/rtd-connect-api/pkg/errors"
)

type configurationRepoStub struct {
	items map[string]models.Configuration
	err   error
}

func (s *configurationRepoStub) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := []models.Configuration{}
	for _, key := range keys {
		if cfg, ok := s.items[key]; ok {
			result = append(result, cfg)
		}
	}
	return result, nil
}

func (s *configurationRepoStub) Get(ctx context.Context, key string) (*models.Configuration, error) {
	if s.err != nil {
		return nil, s.err
	}
	if cfg, ok := s.items[key]; ok {
		return &cfg, nil
	}
	return nil, sql.ErrNoRows
}

func (s *configurationRepoStub) Upsert(ctx context.Context, cfg *models.Configuration) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.Configuration)
	}
	s.items[cfg.Key] = *cfg
	return nil
}

func (s *configurationRepoStub) BulkUpsert(ctx context.Context, cfgs []models.Configuration) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.Configuration)
	}
	for _, cfg := range cfgs {
		s.items[cfg.Key] = cfg
	}
	return nil
}

func (s *configurationRepoStub) Delete(ctx context.Context, key string) error {
	if _, ok := s.items[key]; !ok {
		return sql.ErrNoRows
	}
	delete(s.items, key)
	return nil
}

func newConfigurationService(repo *configurationRepoStub) *ConfigurationService {
	return NewConfigurationService(repo, validator.New(), nil, ConfigurationServiceConfig{
		Defaults: map[string]string{SettingTermCutoffDate: "2025-01-30"},
	})
}

var admin = &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}

func TestConfigurationServiceListMergesDefaults(t *testing.T) {
	repo := &configurationRepoStub{items: map[string]models.Configuration{
		SettingEnableTermEditing: {Key: SettingEnableTermEditing, Value: "true", Type: models.ConfigurationTypeBoolean},
	}}
	items, err := newConfigurationService(repo).List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	byKey := map[string]dto.ConfigurationItem{}
	for _, item := range items {
		byKey[item.Key] = item
	}
	assert.Equal(t, "2025-01-30", byKey[SettingTermCutoffDate].Value)
	assert.False(t, byKey[SettingTermCutoffDate].Overridden)
	assert.Equal(t, "", byKey[SettingFundingSchoolYear].Value)
	assert.Equal(t, "true", byKey[SettingEnableTermEditing].Value)
	assert.True(t, byKey[SettingEnableTermEditing].Overridden)
}

func TestConfigurationServiceUpdateValidatesByType(t *testing.T) {
	service := newConfigurationService(&configurationRepoStub{})
	ctx := context.Background()

	item, err := service.Update(ctx, SettingEnableTermEditing, " TRUE ", admin)
	require.NoError(t, err)
	assert.Equal(t, "true", item.Value)
	assert.Equal(t, "BOOLEAN", item.Type)

	item, err = service.Update(ctx, SettingTermCutoffDate, "2026-01-29", admin)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-29", item.Value)

	item, err = service.Update(ctx, SettingFundingSchoolYear, "25/26", admin)
	require.NoError(t, err)
	assert.Equal(t, "25/26", item.Value)

	for key, value := range map[string]string{
		SettingEnableTermEditing: "yes",
		SettingTermCutoffDate:    "29/01/2026",
		SettingFundingSchoolYear: "25/27",
	} {
		_, err := service.Update(ctx, key, value, admin)
		require.Error(t, err, key)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, key)
	}
	_, err = service.Update(ctx, SettingFundingSchoolYear, "2025/2026", admin)
	require.Error(t, err)
}

func TestConfigurationServiceUpdateInvalidKey(t *testing.T) {
	_, err := newConfigurationService(&configurationRepoStub{}).Update(context.Background(), "unknown_key", "abc", admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConfigurationServiceUpdateRejectsTypeMismatch(t *testing.T) {
	repo := &configurationRepoStub{items: map[string]models.Configuration{
		SettingTermCutoffDate: {Key: SettingTermCutoffDate, Value: "x", Type: models.ConfigurationTypeBoolean},
	}}
	_, err := newConfigurationService(repo).Update(context.Background(), SettingTermCutoffDate, "2026-01-29", admin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")
}

func TestConfigurationServiceBulkUpdateIsAllOrNothing(t *testing.T) {
	repo := &configurationRepoStub{}
	service := newConfigurationService(repo)
	req := dto.BulkUpdateConfigurationRequest{Items: []dto.UpdateConfigurationRequest{
		{Key: SettingEnableTermEditing, Value: "true"},
		{Key: "unknown", Value: "value"},
	}}
	_, err := service.BulkUpdate(context.Background(), req, admin)
	require.Error(t, err)
	assert.Empty(t, repo.items)

	req.Items[1] = dto.UpdateConfigurationRequest{Key: SettingFundingSchoolYear, Value: "24/25"}
	items, err := service.BulkUpdate(context.Background(), req, admin)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "admin", *repo.items[SettingFundingSchoolYear].UpdatedBy)

	_, err = service.BulkUpdate(context.Background(), req, nil)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestConfigurationServiceEffectiveValues(t *testing.T) {
	repo := &configurationRepoStub{}
	service := newConfigurationService(repo)
	ctx := context.Background()

	cutoff, err := service.TermCutoffDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-30", cutoff)

	enabled, err := service.TermEditingEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	year, err := service.FundingSchoolYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", year)

	_, err = service.Update(ctx, SettingTermCutoffDate, "2026-02-02", admin)
	require.NoError(t, err)
	cutoff, err = service.TermCutoffDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-02", cutoff)

	item, err := service.Reset(ctx, SettingTermCutoffDate, admin)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-30", item.Value)
	assert.False(t, item.Overridden)

	repo.err = errors.New("db down")
	_, err = service.TermCutoffDate(ctx)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
