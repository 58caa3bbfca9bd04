package owners

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/shared/server/middleware"
	"venture-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

func (h *Handler) me(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	if isGuest, ok := c.Get("isGuest"); ok {
		if guest, ok2 := isGuest.(bool); ok2 && guest {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
			return
		}
	}
	ownerID := middleware.OwnerIDFromContext(c)
	owner, err := h.Svc.GetByID(c.Request.Context(), ownerID)
	if err != nil {
		if err == ErrNotFound {
			respond.Error(c, http.StatusNotFound, "not_found", "owner not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load owner", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"id":         owner.ID,
		"email":      owner.Email,
		"fullName":   owner.FullName,
		"pictureUrl": owner.PictureURL,
	})
}
