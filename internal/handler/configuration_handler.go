package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rtdacademy/rtd-connect-api/internal/dto"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	appErrors "github.com/rtdacademy/rtd-connect-api/pkg/errors"
	"github.com/rtdacademy/rtd-connect-api/pkg/response"
)

type configurationService interface {
	List(ctx context.Context) ([]dto.ConfigurationItem, error)
	Get(ctx context.Context, key string) (*dto.ConfigurationItem, error)
	Update(ctx context.Context, key, value string, actor *models.JWTClaims) (*dto.ConfigurationItem, error)
	BulkUpdate(ctx context.Context, req dto.BulkUpdateConfigurationRequest, actor *models.JWTClaims) ([]dto.ConfigurationItem, error)
	Reset(ctx context.Context, key string, actor *models.JWTClaims) (*dto.ConfigurationItem, error)
}

// ConfigurationHandler exposes the eligibility settings (term cutoff, funding school year, term editing).
type ConfigurationHandler struct {
	service configurationService
}

// NewConfigurationHandler builds a new handler.
func NewConfigurationHandler(service configurationService) *ConfigurationHandler {
	return &ConfigurationHandler{service: service}
}

// List godoc
// @Summary List eligibility settings
// @Tags Configuration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /configuration [get]
func (h *ConfigurationHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get setting by key
// @Tags Configuration
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /configuration/{key} [get]
func (h *ConfigurationHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Update godoc
// @Summary Override a setting
// @Tags Configuration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Param payload body dto.UpdateConfigurationRequest true "Setting payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /configuration/{key} [put]
func (h *ConfigurationHandler) Update(c *gin.Context) {
	var req dto.UpdateConfigurationRequest
	if !bindJSON(c, &req, "invalid configuration payload") {
		return
	}
	if req.Key == "" {
		req.Key = c.Param("key")
	}
	if req.Key != c.Param("key") {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "key mismatch between path and body"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), req.Key, req.Value, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// BulkUpdate godoc
// @Summary Override several settings at once
// @Tags Configuration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BulkUpdateConfigurationRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /configuration [put]
func (h *ConfigurationHandler) BulkUpdate(c *gin.Context) {
	var req dto.BulkUpdateConfigurationRequest
	if !bindJSON(c, &req, "invalid bulk payload") {
		return
	}
	items, err := h.service.BulkUpdate(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Reset godoc
// @Summary Drop an override and fall back to the configured default
// @Tags Configuration
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Router /configuration/{key} [delete]
func (h *ConfigurationHandler) Reset(c *gin.Context) {
	item, err := h.service.Reset(c.Request.Context(), c.Param("key"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
