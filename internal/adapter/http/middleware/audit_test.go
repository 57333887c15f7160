package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"arcana-settlement/internal/adapter/http/middleware"
	"arcana-settlement/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureAuditService collects entries synchronously for assertions.
type captureAuditService struct {
	entries []*domain.AuditLog
}

func (s *captureAuditService) Log(_ context.Context, entry *domain.AuditLog) {
	s.entries = append(s.entries, entry)
}

func auditRouter(svc *captureAuditService, userID uuid.UUID, status int) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.CtxUserID, userID)
		}
	})
	r.Use(middleware.AuditLog(svc))
	handler := func(c *gin.Context) { c.JSON(status, gin.H{}) }
	r.POST("/api/v1/orders", handler)
	r.POST("/api/v1/orders/:id/complete", handler)
	r.GET("/api/v1/orders/:id", handler)
	return r
}

func TestAuditLog_RecordsSuccessfulWrite(t *testing.T) {
	svc := &captureAuditService{}
	userID := uuid.New()
	orderID := uuid.New()
	r := auditRouter(svc, userID, http.StatusOK)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/complete", nil))

	require.Len(t, svc.entries, 1)
	entry := svc.entries[0]
	assert.Equal(t, domain.AuditActionCompleteOrder, entry.Action)
	assert.Equal(t, "order", entry.ResourceType)
	assert.Equal(t, orderID.String(), entry.ResourceID)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, userID, *entry.ActorID)
}

func TestAuditLog_SkipsReads(t *testing.T) {
	svc := &captureAuditService{}
	r := auditRouter(svc, uuid.New(), http.StatusOK)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.New().String(), nil))

	assert.Empty(t, svc.entries)
}

func TestAuditLog_SkipsFailedRequests(t *testing.T) {
	svc := &captureAuditService{}
	r := auditRouter(svc, uuid.New(), http.StatusConflict)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))

	assert.Empty(t, svc.entries)
}

func TestAuditLog_AnonymousActor(t *testing.T) {
	svc := &captureAuditService{}
	r := auditRouter(svc, uuid.Nil, http.StatusCreated)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))

	require.Len(t, svc.entries, 1)
	assert.Nil(t, svc.entries[0].ActorID)
	assert.Equal(t, domain.AuditActionCreateOrder, svc.entries[0].Action)
}
