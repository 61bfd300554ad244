package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rtdacademy/rtd-connect-api/internal/dto"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	appErrors "github.com/rtdacademy/rtd-connect-api/pkg/errors"
	"github.com/rtdacademy/rtd-connect-api/pkg/validation"
)

// Setting keys understood by the configuration service.
const (
	SettingTermCutoffDate    = "term_cutoff_date"
	SettingFundingSchoolYear = "funding_school_year"
	SettingEnableTermEditing = "enable_term_editing"
)

var schoolYearCodePattern = regexp.MustCompile(`^(\d{2})/(\d{2})$`)

type configurationRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	Get(ctx context.Context, key string) (*models.Configuration, error)
	Upsert(ctx context.Context, cfg *models.Configuration) error
	BulkUpsert(ctx context.Context, cfgs []models.Configuration) error
	Delete(ctx context.Context, key string) error
}

type allowedConfiguration struct {
	Key         string
	Type        models.ConfigurationType
	Description string
}

var allowedConfigurationKeys = []string{
	SettingTermCutoffDate,
	SettingFundingSchoolYear,
	SettingEnableTermEditing,
}

var allowedConfigurations = map[string]allowedConfiguration{
	SettingTermCutoffDate: {
		Key:         SettingTermCutoffDate,
		Type:        models.ConfigurationTypeDate,
		Description: "First day counted as Term 2 when classifying completed enrollments",
	},
	SettingFundingSchoolYear: {
		Key:         SettingFundingSchoolYear,
		Type:        models.ConfigurationTypeSchoolYear,
		Description: "School year (YY/YY) used for funding checks; empty follows the calendar",
	},
	SettingEnableTermEditing: {
		Key:         SettingEnableTermEditing,
		Type:        models.ConfigurationTypeBoolean,
		Description: "Allow staff to set manual term overrides",
	},
}

// ConfigurationServiceConfig carries the environment defaults used when no override is stored.
type ConfigurationServiceConfig struct {
	Defaults map[string]string
}

// ConfigurationService manages runtime settings backed by the database with environment fallbacks.
type ConfigurationService struct {
	repo      configurationRepository
	validator *validator.Validate
	logger    *zap.Logger
	defaults  map[string]string
}

// NewConfigurationService constructs a ConfigurationService.
func NewConfigurationService(repo configurationRepository, validate *validator.Validate, logger *zap.Logger, cfg ConfigurationServiceConfig) *ConfigurationService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := map[string]string{SettingEnableTermEditing: "false"}
	for key, value := range cfg.Defaults {
		if value == "" {
			continue
		}
		defaults[key] = value
	}
	return &ConfigurationService{repo: repo, validator: validate, logger: logger, defaults: defaults}
}

// List returns every known setting with its effective value.
func (s *ConfigurationService) List(ctx context.Context) ([]dto.ConfigurationItem, error) {
	rows, err := s.repo.ListByKeys(ctx, allowedConfigurationKeys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configurations")
	}
	stored := make(map[string]models.Configuration, len(rows))
	for _, row := range rows {
		stored[row.Key] = row
	}

	items := make([]dto.ConfigurationItem, 0, len(allowedConfigurationKeys))
	for _, key := range allowedConfigurationKeys {
		if row, ok := stored[key]; ok {
			items = append(items, s.item(allowedConfigurations[key], &row))
			continue
		}
		items = append(items, s.item(allowedConfigurations[key], nil))
	}
	return items, nil
}

// Get retrieves a single setting, falling back to its default.
func (s *ConfigurationService) Get(ctx context.Context, key string) (*dto.ConfigurationItem, error) {
	meta, err := s.requireAllowedKey(key)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.Get(ctx, key)
	if err != nil {
		if !isNotFound(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get configuration")
		}
		row = nil
	}
	item := s.item(meta, row)
	return &item, nil
}

// Update stores an override after validating it against the setting's type.
func (s *ConfigurationService) Update(ctx context.Context, key, value string, actor *models.JWTClaims) (*dto.ConfigurationItem, error) {
	meta, err := s.requireAllowedKey(key)
	if err != nil {
		return nil, err
	}
	value, err = validateSettingValue(meta, value)
	if err != nil {
		return nil, err
	}

	prev, err := s.repo.Get(ctx, key)
	if err != nil && !isNotFound(err) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch configuration")
	}
	if prev != nil && prev.Type != meta.Type {
		return nil, appErrors.Clone(appErrors.ErrValidation, "configuration type mismatch")
	}

	row := &models.Configuration{
		Key:         key,
		Value:       value,
		Type:        meta.Type,
		Description: strPtr(meta.Description),
		UpdatedBy:   userIDPtr(actor),
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update configuration")
	}
	s.logChange(actor, key, prev, value)

	item := s.item(meta, row)
	return &item, nil
}

// BulkUpdate applies multiple updates atomically.
func (s *ConfigurationService) BulkUpdate(ctx context.Context, req dto.BulkUpdateConfigurationRequest, actor *models.JWTClaims) ([]dto.ConfigurationItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidRequest(err, "invalid bulk payload")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	rows := make([]models.Configuration, 0, len(req.Items))
	for _, entry := range req.Items {
		meta, err := s.requireAllowedKey(entry.Key)
		if err != nil {
			return nil, err
		}
		value, err := validateSettingValue(meta, entry.Value)
		if err != nil {
			return nil, err
		}
		rows = append(rows, models.Configuration{
			Key:         entry.Key,
			Value:       value,
			Type:        meta.Type,
			Description: strPtr(meta.Description),
			UpdatedBy:   userIDPtr(actor),
		})
	}
	if err := s.repo.BulkUpsert(ctx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk update configurations")
	}

	items := make([]dto.ConfigurationItem, 0, len(rows))
	for i := range rows {
		s.logChange(actor, rows[i].Key, nil, rows[i].Value)
		items = append(items, s.item(allowedConfigurations[rows[i].Key], &rows[i]))
	}
	return items, nil
}

// Reset removes a stored override so the default applies again.
func (s *ConfigurationService) Reset(ctx context.Context, key string, actor *models.JWTClaims) (*dto.ConfigurationItem, error) {
	meta, err := s.requireAllowedKey(key)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, key); err != nil && !isNotFound(err) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset configuration")
	}
	s.logger.Info("configuration reset", zap.String("key", key), zap.Stringp("actor", userIDPtr(actor)))
	item := s.item(meta, nil)
	return &item, nil
}

// TermCutoffDate returns the effective cutoff date. A stored value is returned as is; the
// term rules treat an unreadable cutoff as "no Term 1 students".
func (s *ConfigurationService) TermCutoffDate(ctx context.Context) (string, error) {
	return s.effectiveValue(ctx, SettingTermCutoffDate)
}

// FundingSchoolYear returns the configured funding school year, or "" to follow the calendar.
func (s *ConfigurationService) FundingSchoolYear(ctx context.Context) (string, error) {
	return s.effectiveValue(ctx, SettingFundingSchoolYear)
}

// TermEditingEnabled reports whether manual term overrides are allowed.
func (s *ConfigurationService) TermEditingEnabled(ctx context.Context) (bool, error) {
	value, err := s.effectiveValue(ctx, SettingEnableTermEditing)
	if err != nil {
		return false, err
	}
	enabled, _ := strconv.ParseBool(value)
	return enabled, nil
}

func (s *ConfigurationService) effectiveValue(ctx context.Context, key string) (string, error) {
	row, err := s.repo.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return s.defaults[key], nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get configuration")
	}
	return row.Value, nil
}

func (s *ConfigurationService) item(meta allowedConfiguration, row *models.Configuration) dto.ConfigurationItem {
	item := dto.ConfigurationItem{
		Key:         meta.Key,
		Type:        string(meta.Type),
		Description: meta.Description,
	}
	if row == nil {
		item.Value = s.defaults[meta.Key]
		return item
	}
	item.Value = row.Value
	item.Overridden = true
	if row.Description != nil && *row.Description != "" {
		item.Description = *row.Description
	}
	return item
}

func (s *ConfigurationService) requireAllowedKey(key string) (allowedConfiguration, error) {
	meta, ok := allowedConfigurations[key]
	if !ok {
		return allowedConfiguration{}, appErrors.Clone(appErrors.ErrValidation, "unsupported configuration key")
	}
	return meta, nil
}

func (s *ConfigurationService) logChange(actor *models.JWTClaims, key string, prev *models.Configuration, value string) {
	old := ""
	if prev != nil {
		old = prev.Value
	}
	s.logger.Info("configuration updated",
		zap.String("key", key),
		zap.String("old_value", old),
		zap.String("new_value", value),
		zap.Stringp("actor", userIDPtr(actor)),
	)
}

func validateSettingValue(meta allowedConfiguration, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch meta.Type {
	case models.ConfigurationTypeBoolean:
		switch strings.ToLower(value) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		}
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects boolean value", meta.Key))
	case models.ConfigurationTypeDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects a YYYY-MM-DD date", meta.Key))
		}
		return value, nil
	case models.ConfigurationTypeSchoolYear:
		m := schoolYearCodePattern.FindStringSubmatch(value)
		if m == nil {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects YY/YY", meta.Key))
		}
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		if (first+1)%100 != second {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must span consecutive years", meta.Key))
		}
		return value, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported configuration type")
	}
}
