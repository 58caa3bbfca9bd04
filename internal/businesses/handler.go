package businesses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/shared/server/middleware"
	"venture-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the businesses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches business routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/businesses", h.createBusiness)
	rg.GET("/businesses", h.listBusinesses)
	rg.GET("/businesses/:id", h.getBusiness)
}

type createBusinessRequest struct {
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	Stage       string `json:"stage"`
	Description string `json:"description"`
}

func (h *Handler) createBusiness(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	var req createBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	business, err := h.Svc.Create(c.Request.Context(), ownerID, CreateInput{
		Name:        req.Name,
		Industry:    req.Industry,
		Stage:       req.Stage,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "business name is required", []map[string]string{
				{"field": "name", "issue": "required"},
			})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create business", nil)
		}
		return
	}

	c.Set("businessId", business.ID)
	respond.JSON(c, http.StatusCreated, toResponse(business, false))
}

func (h *Handler) getBusiness(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	businessID := c.Param("id")
	if businessID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "business id is required", nil)
		return
	}

	business, err := h.Svc.Get(c.Request.Context(), ownerID, businessID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "business not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch business", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(business, true))
}

func (h *Handler) listBusinesses(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.Svc.List(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list businesses", nil)
		return
	}

	resp := make([]BusinessResponse, 0, len(list))
	for _, business := range list {
		resp = append(resp, toResponse(business, false))
	}
	respond.JSON(c, http.StatusOK, resp)
}
