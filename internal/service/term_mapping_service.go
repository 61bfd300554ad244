package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rtdacademy/rtd-connect-api/internal/dto"
	"github.com/rtdacademy/rtd-connect-api/internal/eligibility"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	appErrors "github.com/rtdacademy/rtd-connect-api/pkg/errors"
)

type termMappingRepository interface {
	List(ctx context.Context) ([]models.TermMappingRow, error)
	Replace(ctx context.Context, rows []models.TermMappingRow) error
}

// TermMappingService serves the term to PASI term lookup table, cached in Redis.
type TermMappingService struct {
	repo   termMappingRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewTermMappingService constructs a TermMappingService. cache may be nil.
func NewTermMappingService(repo termMappingRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *TermMappingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermMappingService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Mapping returns the current table. An empty table is valid and makes compatibility unknown.
func (s *TermMappingService) Mapping(ctx context.Context) (eligibility.TermMapping, error) {
	var cached eligibility.TermMapping
	if hit, _ := s.cache.Get(ctx, cacheKeyTermMapping, &cached); hit {
		return cached, nil
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term mapping")
	}
	mapping := models.MappingFromRows(rows)
	_ = s.cache.Set(ctx, cacheKeyTermMapping, mapping, s.ttl)
	return mapping, nil
}

// Get returns the table with its last update time.
func (s *TermMappingService) Get(ctx context.Context) (*dto.TermMappingResponse, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term mapping")
	}
	resp := &dto.TermMappingResponse{Mappings: models.MappingFromRows(rows)}
	for i := range rows {
		if resp.UpdatedAt == nil || rows[i].UpdatedAt.After(*resp.UpdatedAt) {
			updated := rows[i].UpdatedAt
			resp.UpdatedAt = &updated
		}
	}
	return resp, nil
}

// Replace validates and stores a new table, then drops cached term data.
func (s *TermMappingService) Replace(ctx context.Context, payload dto.TermMappingPayload, actor *models.JWTClaims) (*dto.TermMappingResponse, error) {
	rows, err := mappingRows(payload.Mappings, userIDPtr(actor))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Replace(ctx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save term mapping")
	}
	if err := s.cache.Invalidate(ctx, cachePatternTerms); err != nil {
		s.logger.Warn("term mapping cache not invalidated", zap.Error(err))
	}
	s.logger.Info("term mapping replaced", zap.Int("rows", len(rows)), zap.Stringp("actor", userIDPtr(actor)))

	now := time.Now().UTC()
	return &dto.TermMappingResponse{Mappings: models.MappingFromRows(rows), UpdatedAt: &now}, nil
}

// mappingRows normalises a payload. Only Term 1 and Term 2 may be mapped, values are trimmed
// and de-duplicated, and a PASI term may not belong to both terms.
func mappingRows(mappings map[string][]string, actor *string) ([]models.TermMappingRow, error) {
	owner := make(map[string]string)
	var rows []models.TermMappingRow
	for _, term := range []string{eligibility.Term1, eligibility.Term2} {
		values := mappings[term]
		sorted := make([]string, 0, len(values))
		for _, value := range values {
			value = strings.TrimSpace(value)
			if value == "" {
				return nil, appErrors.Clone(appErrors.ErrInvalidMapping, fmt.Sprintf("%s contains an empty PASI term", term))
			}
			if prev, ok := owner[value]; ok {
				if prev == term {
					continue
				}
				return nil, appErrors.Clone(appErrors.ErrInvalidMapping, fmt.Sprintf("PASI term %q is mapped to both %s and %s", value, prev, term))
			}
			owner[value] = term
			sorted = append(sorted, value)
		}
		sort.Strings(sorted)
		for _, value := range sorted {
			rows = append(rows, models.TermMappingRow{Term: term, PasiTerm: value, UpdatedBy: actor})
		}
	}
	for term := range mappings {
		if term != eligibility.Term1 && term != eligibility.Term2 {
			return nil, appErrors.Clone(appErrors.ErrInvalidMapping, fmt.Sprintf("unsupported term %q", term))
		}
	}
	return rows, nil
}
