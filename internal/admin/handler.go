// Package admin serves the inspection API of a running bus.
package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"labelbus/internal/logger"
	"labelbus/internal/routing"
	"labelbus/pkg/errors"
	"labelbus/pkg/models"
)

type Handler struct {
	Router *routing.Router
	Logger logger.Logger
}

func NewHandler(router *routing.Router, log logger.Logger) *Handler {
	return &Handler{
		Router: router,
		Logger: log,
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		routes := v1.Group("/routes")
		{
			routes.GET("", h.ListRoutes)
			routes.GET("/:name", h.GetRoute)
			routes.GET("/:name/messages", h.ListMessages)
			routes.DELETE("/:name/messages", h.ClearMessages)
			routes.GET("/:name/breakers", h.ListBreakers)
		}
	}
}

func (h *Handler) ListRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, h.Router.Routes())
}

func (h *Handler) GetRoute(c *gin.Context) {
	route, err := h.route(c.Param("name"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, route.Info())
}

type MessagesResponse struct {
	Route    string            `json:"route"`
	Total    uint64            `json:"total"`
	Messages []*models.Message `json:"messages"`
}

// ListMessages returns messages held by the route's collector sink, newest
// last. ?limit=N keeps only the last N.
func (h *Handler) ListMessages(c *gin.Context) {
	name := c.Param("name")
	collector, ok := h.Router.Collector(name)
	if !ok {
		h.HandleError(c, errors.ErrNotFound.WithMessage("route has no collector: "+name))
		return
	}

	msgs := collector.Messages()
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.HandleError(c, errors.ErrValidation.WithMessage("limit must be a non-negative integer"))
			return
		}
		if limit < len(msgs) {
			msgs = msgs[len(msgs)-limit:]
		}
	}

	c.JSON(http.StatusOK, MessagesResponse{
		Route:    name,
		Total:    collector.Total(),
		Messages: msgs,
	})
}

func (h *Handler) ClearMessages(c *gin.Context) {
	name := c.Param("name")
	collector, ok := h.Router.Collector(name)
	if !ok {
		h.HandleError(c, errors.ErrNotFound.WithMessage("route has no collector: "+name))
		return
	}
	collector.Reset()
	c.Status(http.StatusNoContent)
}

type BreakerInfo struct {
	Name                string `json:"name"`
	State               string `json:"state"`
	Requests            uint32 `json:"requests"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
}

func (h *Handler) ListBreakers(c *gin.Context) {
	route, err := h.route(c.Param("name"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	infos := make([]BreakerInfo, 0, len(route.Breakers))
	for _, b := range route.Breakers {
		counts := b.Counts()
		infos = append(infos, BreakerInfo{
			Name:                b.Name(),
			State:               b.State().String(),
			Requests:            counts.Requests,
			ConsecutiveFailures: counts.ConsecutiveFailures,
		})
	}
	c.JSON(http.StatusOK, infos)
}

func (h *Handler) route(name string) (*routing.Route, error) {
	route, ok := h.Router.Route(name)
	if !ok {
		return nil, errors.ErrNotFound.WithMessage("route not found: " + name).WithDetail("route", name)
	}
	return route, nil
}
