package terminal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"posservice/internal/catalog"
	"posservice/internal/inventory"
	"posservice/internal/recipe"
	"posservice/internal/settlement"
)

func newRouter(t *testing.T, settler Settler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	menu := testMenu()
	router := gin.New()
	NewHandler(NewRegistry(menu, settler, zap.NewNop()), menu, zap.NewNop()).Register(router)
	return router
}

func do(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) orderView {
	t.Helper()
	var v orderView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHandler_OrderFlow(t *testing.T) {
	router := newRouter(t, &fakeSettler{})

	w := do(router, http.MethodPost, "/terminals/t1/meals", gin.H{
		"kind": "Bowl", "base": "Fried Rice", "entrees": []string{"Orange Chicken"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	do(router, http.MethodPost, "/terminals/t1/items", gin.H{"name": "Veggie Spring Roll"})
	w = do(router, http.MethodPost, "/terminals/t1/items", gin.H{"name": "Veggie Spring Roll"})
	require.Equal(t, http.StatusOK, w.Code)

	v := decodeOrder(t, w)
	assert.Equal(t, "11.50", v.Total)
	require.Len(t, v.Lines, 2)
	assert.Equal(t, "Bowl (Fried Rice, Orange Chicken)", v.Lines[0].DisplayName)
	assert.Equal(t, 2, v.Lines[1].Quantity)
	assert.Equal(t, "4.00", v.Lines[1].Subtotal)

	w = do(router, http.MethodPost, "/terminals/t1/remove", gin.H{"display_name": "Bowl (Fried Rice, Orange Chicken)"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4.00", decodeOrder(t, w).Total)

	w = do(router, http.MethodPost, "/terminals/t1/remove", gin.H{"display_name": "Bowl (Fried Rice, Orange Chicken)"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodGet, "/terminals/t2/order", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", decodeOrder(t, w).Total)

	w = do(router, http.MethodPost, "/terminals/t1/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeOrder(t, w).Lines)
}

func TestHandler_Errors(t *testing.T) {
	router := newRouter(t, &fakeSettler{})

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"bad body", "/terminals/t1/items", gin.H{}, http.StatusBadRequest},
		{"unknown item", "/terminals/t1/items", gin.H{"name": "Mystery Meat"}, http.StatusNotFound},
		{"retired item", "/terminals/t1/items", gin.H{"name": "Retired Special"}, http.StatusBadRequest},
		{"entree with separator", "/terminals/t1/meals", gin.H{"kind": "bowl", "base": "Fried Rice", "entrees": []string{"Orange Chicken, Beijing Beef"}}, http.StatusBadRequest},
		{"invalid terminal id", "/terminals/t%20one/items", gin.H{"name": "Veggie Spring Roll"}, http.StatusBadRequest},
		{"unknown meal kind", "/terminals/t1/meals", gin.H{"kind": "Family Feast", "base": "Fried Rice", "entrees": []string{"A"}}, http.StatusBadRequest},
		{"wrong entree count", "/terminals/t1/meals", gin.H{"kind": "plate", "base": "Fried Rice", "entrees": []string{"Orange Chicken"}}, http.StatusBadRequest},
		{"pay empty order", "/terminals/t1/pay", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestHandler_GetOrderRejectsInvalidTerminal(t *testing.T) {
	router := newRouter(t, &fakeSettler{})

	w := do(router, http.MethodGet, "/terminals/t%20one/order", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid terminal id")

	w = do(router, http.MethodGet, "/terminals/t1/order", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t1", decodeOrder(t, w).TerminalID)
}

func TestHandler_Menu(t *testing.T) {
	router := newRouter(t, &fakeSettler{})

	w := do(router, http.MethodGet, "/menu/entrees", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []menuItemView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Beijing Beef", items[0].Name)
	assert.Equal(t, "5.20", items[0].Price)

	w = do(router, http.MethodGet, "/menu/bases", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	w = do(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_PayWithCoordinator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	menu := testMenu()
	menu.Put(
		catalog.MenuComponent{ID: 30, Name: "Veggie Spring Roll", UnitPrice: decimal.RequireFromString("2.00"), CategoryID: 4, Active: true},
		catalog.RecipeEntry{IngredientID: 4, IngredientName: "spring-roll-stock", Unit: "units", QuantityPerUnit: decimal.NewFromInt(1)},
	)
	inv := inventory.NewMemoryStore(
		inventory.Ingredient{ID: 4, Name: "spring-roll-stock", Unit: "units", Quantity: decimal.NewFromInt(1)},
	)
	coord := settlement.NewCoordinator(recipe.NewResolver(menu), inv, settlement.Options{},
		zap.NewNop(), noop.NewTracerProvider().Tracer("test"))
	router := gin.New()
	NewHandler(NewRegistry(menu, coord, zap.NewNop()), menu, zap.NewNop()).Register(router)

	do(router, http.MethodPost, "/terminals/t1/items", gin.H{"name": "Veggie Spring Roll"})
	w := do(router, http.MethodPost, "/terminals/t1/pay", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var receipt receiptView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.Equal(t, "2.00", receipt.Total)
	require.Len(t, receipt.Usage, 1)
	assert.Equal(t, "1.00", receipt.Usage[0].Quantity)
	assert.Contains(t, receipt.Receipt, "Total Paid: $2.00")

	do(router, http.MethodPost, "/terminals/t1/items", gin.H{"name": "Veggie Spring Roll"})
	w = do(router, http.MethodPost, "/terminals/t1/pay", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(router, http.MethodGet, "/terminals/t1/order", nil)
	assert.Len(t, decodeOrder(t, w).Lines, 1, "order survives a failed payment")
}
