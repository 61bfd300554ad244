package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rtdacademy/rtd-connect-api/internal/middleware"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	"github.com/rtdacademy/rtd-connect-api/pkg/response"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withUser(c *gin.Context, role models.UserRole) *models.JWTClaims {
	claims := &models.JWTClaims{UserID: "user-1", Role: role, FamilyID: "fam-1"}
	c.Set(middleware.ContextUserKey, claims)
	return claims
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (map[string]interface{}, *response.Pagination) {
	t.Helper()
	var raw struct {
		Data       json.RawMessage        `json:"data"`
		Error      map[string]interface{} `json:"error"`
		Pagination *response.Pagination   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if raw.Error != nil {
		return raw.Error, nil
	}
	var data map[string]interface{}
	if len(raw.Data) > 0 && raw.Data[0] == '{' {
		require.NoError(t, json.Unmarshal(raw.Data, &data))
	}
	return data, raw.Pagination
}
