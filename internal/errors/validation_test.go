package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bindTarget struct {
	ProductID int64  `json:"product_id" binding:"required,gt=0"`
	Offset    int64  `json:"offset" binding:"gte=0"`
	Email     string `json:"email" binding:"omitempty,email"`
}

func bindAndRespond(t *testing.T, body string) (int, ValidationError) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req bindTarget
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondWithValidationError(c, BindingFields(err))
			return
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp ValidationError
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func TestBindingFields(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields map[string]string
	}{
		{"valid", `{"product_id":3}`, http.StatusNoContent, nil},
		{"missing", `{}`, http.StatusBadRequest, map[string]string{"product_id": "is required"}},
		{"out of range", `{"product_id":-1,"offset":-2}`, http.StatusBadRequest, map[string]string{
			"product_id": "must be greater than 0",
			"offset":     "must be at least 0",
		}},
		{"bad email", `{"product_id":1,"email":"nope"}`, http.StatusBadRequest, map[string]string{"email": "must be an email address"}},
		{"not json", `{"product_id":`, http.StatusBadRequest, map[string]string{"body": "must be a valid JSON object"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := bindAndRespond(t, tt.body)

			assert.Equal(t, tt.wantStatus, status)
			if tt.wantFields == nil {
				return
			}
			assert.Equal(t, ValidationInvalidInput, resp.Error)
			assert.Equal(t, tt.wantFields, resp.Fields)
		})
	}
}
