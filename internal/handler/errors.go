package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"shopmaster/internal/middleware"
	"shopmaster/internal/model"
	"shopmaster/internal/service"
	"shopmaster/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotPending), errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		msg = "Internal server error"
	}
	c.JSON(status, response.Error(status, msg))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

// currentActor returns the authenticated caller or answers 401.
func currentActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
	}
	return actor, ok
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// dateRange reads from/to (YYYY-MM-DD, both inclusive) into a half-open [from, to+1d) range.
func dateRange(c *gin.Context) (*time.Time, *time.Time, bool) {
	var from, to *time.Time
	if s := c.Query("from"); s != "" {
		d, err := time.Parse(model.DateLayout, s)
		if err != nil {
			badRequest(c, "Invalid from date. Expected YYYY-MM-DD")
			return nil, nil, false
		}
		from = &d
	}
	if s := c.Query("to"); s != "" {
		d, err := time.Parse(model.DateLayout, s)
		if err != nil {
			badRequest(c, "Invalid to date. Expected YYYY-MM-DD")
			return nil, nil, false
		}
		d = d.AddDate(0, 0, 1)
		to = &d
	}
	return from, to, true
}
