package terminal

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"posservice/internal/catalog"
	"posservice/internal/order"
	"posservice/internal/settlement"
)

type Handler struct {
	registry *Registry
	catalog  catalog.Store
	logger   *zap.Logger
}

func NewHandler(registry *Registry, store catalog.Store, logger *zap.Logger) *Handler {
	return &Handler{registry: registry, catalog: store, logger: logger}
}

// Register mounts the terminal and menu routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health())

	menu := r.Group("/menu")
	menu.GET("/entrees", h.ListEntrees())
	menu.GET("/bases", h.ListBases())

	t := r.Group("/terminals/:id")
	t.GET("/order", h.GetOrder())
	t.POST("/items", h.SelectItem())
	t.POST("/meals", h.SelectMeal())
	t.POST("/remove", h.RemoveOne())
	t.POST("/cancel", h.Cancel())
	t.POST("/pay", h.Pay())
}

type lineView struct {
	DisplayName string `json:"display_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

type orderView struct {
	TerminalID string     `json:"terminal_id"`
	Lines      []lineView `json:"lines"`
	Total      string     `json:"total"`
}

func newOrderView(id string, snap order.Snapshot) orderView {
	v := orderView{TerminalID: id, Lines: make([]lineView, len(snap.Lines)), Total: snap.Total.StringFixed(2)}
	for i, l := range snap.Lines {
		v.Lines[i] = lineView{
			DisplayName: l.DisplayName(),
			UnitPrice:   l.UnitPrice.StringFixed(2),
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal().StringFixed(2),
		}
	}
	return v
}

type menuItemView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type usageView struct {
	IngredientID int64  `json:"ingredient_id"`
	Name         string `json:"name"`
	Quantity     string `json:"quantity"`
	Unit         string `json:"unit"`
}

type receiptView struct {
	SettlementID string      `json:"settlement_id"`
	Usage        []usageView `json:"usage"`
	Skipped      []string    `json:"skipped,omitempty"`
	Total        string      `json:"total"`
	Receipt      string      `json:"receipt"`
}

type selectItemRequest struct {
	Name string `json:"name" binding:"required"`
}

type selectMealRequest struct {
	Kind    string   `json:"kind" binding:"required"`
	Base    string   `json:"base" binding:"required"`
	Entrees []string `json:"entrees" binding:"required"`
}

type removeRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

func (h *Handler) Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (h *Handler) ListEntrees() gin.HandlerFunc {
	return h.listMenu(h.catalog.ListEntrees)
}

func (h *Handler) ListBases() gin.HandlerFunc {
	return h.listMenu(h.catalog.ListBases)
}

func (h *Handler) listMenu(list func(ctx context.Context) ([]catalog.MenuComponent, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := list(c.Request.Context())
		if err != nil {
			h.respondError(c, err)
			return
		}
		out := make([]menuItemView, len(items))
		for i, it := range items {
			out[i] = menuItemView{ID: it.ID, Name: it.Name, Price: it.UnitPrice.StringFixed(2)}
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /terminals/:id/order
func (h *Handler) GetOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var view orderView
		if err := h.registry.Do(id, func(s *Session) error {
			view = newOrderView(id, s.Order())
			return nil
		}); err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// POST /terminals/:id/items
func (h *Handler) SelectItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req selectItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		h.mutate(c, func(s *Session) error {
			_, err := s.SelectSimpleItem(c.Request.Context(), req.Name)
			return err
		})
	}
}

// POST /terminals/:id/meals
func (h *Handler) SelectMeal() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req selectMealRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		kind, err := order.ParseMealKind(req.Kind)
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.mutate(c, func(s *Session) error {
			_, err := s.SelectMeal(c.Request.Context(), kind, req.Base, req.Entrees)
			return err
		})
	}
}

// POST /terminals/:id/remove
func (h *Handler) RemoveOne() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req removeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		h.mutate(c, func(s *Session) error {
			_, err := s.RemoveOneUnit(req.DisplayName)
			return err
		})
	}
}

// POST /terminals/:id/cancel
func (h *Handler) Cancel() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.mutate(c, func(s *Session) error {
			s.CancelOrder()
			return nil
		})
	}
}

// POST /terminals/:id/pay
func (h *Handler) Pay() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var report *settlement.Report
		err := h.registry.Do(id, func(s *Session) error {
			var err error
			report, err = s.Settle(c.Request.Context())
			return err
		})
		if err != nil {
			h.respondError(c, err)
			return
		}

		v := receiptView{
			SettlementID: report.SettlementID,
			Usage:        make([]usageView, len(report.Lines)),
			Skipped:      report.Skipped,
			Total:        report.Total.StringFixed(2),
			Receipt:      report.String(),
		}
		for i, u := range report.Lines {
			v.Usage[i] = usageView{
				IngredientID: u.IngredientID,
				Name:         u.Name,
				Quantity:     u.TotalQuantity.StringFixed(2),
				Unit:         u.Unit,
			}
		}
		c.JSON(http.StatusOK, v)
	}
}

// mutate runs fn against the terminal's session and replies with the
// resulting order.
func (h *Handler) mutate(c *gin.Context, fn func(*Session) error) {
	id := c.Param("id")
	var view orderView
	err := h.registry.Do(id, func(s *Session) error {
		if err := fn(s); err != nil {
			return err
		}
		view = newOrderView(id, s.Order())
		return nil
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("❌ Terminal request failed",
			zap.String("path", c.FullPath()),
			zap.String("terminal.id", c.Param("id")),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, order.ErrInvalidSelection), errors.Is(err, settlement.ErrEmptyOrder),
		errors.Is(err, ErrInvalidTerminal):
		return http.StatusBadRequest
	case errors.Is(err, settlement.ErrUnresolvedComponent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, order.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, settlement.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, settlement.ErrTransactionFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
