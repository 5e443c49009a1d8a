package ledger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitstudio/internal/auth"
	"fitstudio/internal/tenant"
)

func setupRouter(repo *MockRepo, tenantID, userID uuid.UUID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(newTestService(repo))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		tenant.Set(c, tenantID)
		c.Set("user_id", userID)
		c.Set("user_role", role)
		c.Next()
	})
	r.GET("/me/balance", h.GetBalance)
	r.GET("/me/credits", h.ListCredits)
	r.GET("/me/memberships", h.ListMemberships)
	return r
}

func TestHandler_GetBalance(t *testing.T) {
	repo := new(MockRepo)
	tenantID, userID := uuid.New(), uuid.New()
	expires := fixedNow.Add(48 * time.Hour)

	repo.On("ListCredits", mock.Anything, tenantID, userID).Return([]Credit{
		{ID: uuid.New(), CreditsTotal: 5, CreditsUsed: 1, ExpiresAt: &expires},
		{ID: uuid.New(), CreditsTotal: 2},
	}, nil)
	repo.On("ListMemberships", mock.Anything, tenantID, userID).Return([]Membership{}, nil)

	router := setupRouter(repo, tenantID, userID, auth.RoleMember)
	req, _ := http.NewRequest(http.MethodGet, "/me/balance", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var b Balance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, 6, b.CreditsAvailable)
	assert.False(t, b.HasActiveMembership)
	require.NotNil(t, b.NextCreditExpiration)
	assert.True(t, expires.Equal(*b.NextCreditExpiration))
}

func TestHandler_ListCredits_StaffForOtherUser(t *testing.T) {
	repo := new(MockRepo)
	tenantID, staffID, memberID := uuid.New(), uuid.New(), uuid.New()
	repo.On("ListCredits", mock.Anything, tenantID, memberID).Return(nil, nil)

	router := setupRouter(repo, tenantID, staffID, auth.RoleStaff)
	req, _ := http.NewRequest(http.MethodGet, "/me/credits?user="+memberID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	repo.AssertExpectations(t)
}

func TestHandler_ListMemberships_MemberCannotReadOthers(t *testing.T) {
	repo := new(MockRepo)
	tenantID, userID := uuid.New(), uuid.New()
	repo.On("ListMemberships", mock.Anything, tenantID, userID).Return([]Membership{
		{ID: uuid.New(), Status: MembershipActive, StartsAt: fixedNow},
	}, nil)

	router := setupRouter(repo, tenantID, userID, auth.RoleMember)
	req, _ := http.NewRequest(http.MethodGet, "/me/memberships?user="+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []Membership
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 1)
	repo.AssertExpectations(t)
}

func TestHandler_InvalidUserParam(t *testing.T) {
	repo := new(MockRepo)
	router := setupRouter(repo, uuid.New(), uuid.New(), auth.RoleAdmin)

	req, _ := http.NewRequest(http.MethodGet, "/me/balance?user=42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
