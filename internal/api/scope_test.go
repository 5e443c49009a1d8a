package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"fitstudio/internal/tenant"
)

func TestScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tenantID, userID := uuid.New(), uuid.New()

	tests := []struct {
		name       string
		setTenant  bool
		setUser    bool
		wantStatus int
	}{
		{"both set", true, true, http.StatusOK},
		{"missing tenant", false, true, http.StatusBadRequest},
		{"missing user", true, false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.setTenant {
				tenant.Set(c, tenantID)
			}
			if tt.setUser {
				c.Set("user_id", userID)
			}

			gotTenant, gotUser, ok := Scope(c)
			if ok {
				c.Status(http.StatusOK)
				assert.Equal(t, tenantID, gotTenant)
				assert.Equal(t, userID, gotUser)
			}
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.New()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, ok := PathID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "17"}}
	_, ok = PathID(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
