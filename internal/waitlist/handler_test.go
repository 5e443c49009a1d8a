package waitlist

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitstudio/internal/tenant"
)

func setupRouter(repo *MockRepo, tenantID, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewQueue(repo, passthroughTx{}))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		tenant.Set(c, tenantID)
		c.Set("user_id", userID)
		c.Next()
	})
	r.GET("/me/waitlist", h.ListMine)
	r.GET("/staff/sessions/:id/waitlist", h.ListSession)
	return r
}

func TestHandler_ListSession_Ranks(t *testing.T) {
	repo := new(MockRepo)
	tenantID, sessionID := uuid.New(), uuid.New()
	first, second := uuid.New(), uuid.New()
	repo.On("ListBySession", mock.Anything, tenantID, sessionID).Return([]Entry{
		{ID: uuid.New(), SessionID: sessionID, UserID: second, Position: 7},
		{ID: uuid.New(), SessionID: sessionID, UserID: first, Position: 2},
	}, nil)

	router := setupRouter(repo, tenantID, uuid.New())
	req, _ := http.NewRequest(http.MethodGet, "/staff/sessions/"+sessionID.String()+"/waitlist", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []Ranked
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0].UserID)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 2, got[1].Rank)
	assert.Equal(t, 7, got[1].Position)
}

func TestHandler_ListMine_Empty(t *testing.T) {
	repo := new(MockRepo)
	tenantID, userID := uuid.New(), uuid.New()
	repo.On("ListByUser", mock.Anything, tenantID, userID).Return(nil, nil)

	router := setupRouter(repo, tenantID, userID)
	req, _ := http.NewRequest(http.MethodGet, "/me/waitlist", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
