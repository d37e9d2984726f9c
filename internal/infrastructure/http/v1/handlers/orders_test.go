package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/domain"
	"mecanix/internal/domain/orders"
	"mecanix/internal/events"
	"mecanix/internal/infrastructure/http/v1/middleware"
)

type orderRepoFake struct {
	orders map[id.ID]*orders.Order
}

func (r *orderRepoFake) Create(_ context.Context, o *orders.Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *orderRepoFake) GetByID(_ context.Context, orderID id.ID) (*orders.Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	cp := *o
	return &cp, nil
}

func (r *orderRepoFake) Update(_ context.Context, o *orders.Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *orderRepoFake) List(_ context.Context, _ orders.ListFilter) (domain.ListResult[*orders.Order], error) {
	return domain.ListResult[*orders.Order]{}, nil
}

type txPassthrough struct{}

func (txPassthrough) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newOrdersRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &orderRepoFake{orders: make(map[id.ID]*orders.Order)}
	svc := orders.NewService(repo, txPassthrough{}, events.NewBus(), orders.NewRoleGate())
	h := NewOrdersHandler(NewBaseHandler(), svc)

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.POST("/orders", h.Create)
	router.GET("/orders/:id", h.Get)
	return router
}

func postJSON(router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOrdersHandler_Create(t *testing.T) {
	router := newOrdersRouter(t)

	rec := postJSON(router, "/orders", map[string]string{
		"clientId":  id.New().String(),
		"vehicleId": id.New().String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created["id"])
}

func TestOrdersHandler_MalformedIDsAreValidationErrors(t *testing.T) {
	router := newOrdersRouter(t)

	// Malformed body id must come back as a validation failure, never as an
	// internal error.
	rec := postJSON(router, "/orders", map[string]string{
		"clientId":  "not-a-uuid",
		"vehicleId": id.New().String(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperror.CodeValidation, resp["code"])

	// Same contract for malformed path ids.
	req := httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp = map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperror.CodeValidation, resp["code"])
}
