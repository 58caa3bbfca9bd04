package analyses

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/businesses"
	"venture-backend/internal/shared/server/middleware"
	"venture-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc     *Service
	limiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:     svc,
		limiter: newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/businesses/:id/analyses", h.rerunAnalyses)
	rg.GET("/businesses/:id/analyses", h.getAnalyses)
	rg.GET("/businesses/:id/analyses/stream", h.streamAnalyses)
}

type rerunRequest struct {
	Target string `json:"target"`
}

func (h *Handler) rerunAnalyses(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	businessID := c.Param("id")
	if businessID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "business id is required", nil)
		return
	}
	c.Set("businessId", businessID)

	req := rerunRequest{Target: TargetAll}
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	if req.Target == "" {
		req.Target = TargetAll
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	if err := h.Svc.Rerun(ctx, ownerID, businessID, req.Target); err != nil {
		switch {
		case errors.Is(err, businesses.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "business not found", nil)
		case errors.Is(err, ErrInvalidTarget):
			respond.Error(c, http.StatusBadRequest, "validation_error", "unknown analysis kind", []map[string]string{
				{"field": "target", "issue": "unknown"},
			})
		case errors.Is(err, ErrRunInProgress):
			respond.Error(c, http.StatusConflict, "run_in_progress", "an analysis run is already in progress", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analyses", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"accepted": true,
		"target":   req.Target,
	})
}

func (h *Handler) getAnalyses(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	businessID := c.Param("id")
	if businessID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "business id is required", nil)
		return
	}
	c.Set("businessId", businessID)

	if !h.limiter.Allow(ownerID, businessID) {
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", nil)
		return
	}

	business, err := h.Svc.Status(c.Request.Context(), ownerID, businessID)
	if err != nil {
		switch {
		case errors.Is(err, businesses.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "business not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analyses", nil)
		}
		return
	}

	resp := gin.H{
		"businessId": business.ID,
		"statuses":   statusSnapshot(business.Statuses),
	}
	results := gin.H{}
	for _, kind := range businesses.AllKinds() {
		if business.Statuses.Get(kind) != businesses.StateCompleted {
			continue
		}
		if payload := business.Results.Get(kind); payload != nil {
			results[string(kind)] = payload
		}
	}
	if len(results) > 0 {
		resp["results"] = results
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) streamAnalyses(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	businessID := c.Param("id")
	if businessID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "business id is required", nil)
		return
	}
	c.Set("businessId", businessID)

	// Headers go out with the first event, so failures before that point can
	// still answer with a plain status code.
	headersSent := false
	emit := func(ev Event) error {
		if !headersSent {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Header("X-Accel-Buffering", "no")
			c.Writer.WriteHeader(http.StatusOK)
			headersSent = true
		}
		data, err := json.Marshal(ev.Data)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Name, data); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	if err := h.Svc.Stream(ctx, ownerID, businessID, emit); err != nil {
		if headersSent {
			return
		}
		switch {
		case errors.Is(err, businesses.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "business not found", nil)
		case errors.Is(err, ErrRunInProgress):
			respond.Error(c, http.StatusConflict, "run_in_progress", "an analysis run is already in progress", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to stream analyses", nil)
		}
	}
}
