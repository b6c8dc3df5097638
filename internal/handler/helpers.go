package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mastersrl/carnivalhub/internal/handler/middleware"
	"mastersrl/carnivalhub/internal/service"
	"mastersrl/carnivalhub/pkg/response"
)

// actorID returns the authenticated user id, or 0 on public routes.
func actorID(c *gin.Context) uint {
	if u := middleware.Actor(c); u != nil {
		return u.ID
	}
	return 0
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return false
	}
	return true
}

// writeError maps a service error kind onto the response envelope.
func writeError(c *gin.Context, err error) {
	msg := service.MessageOf(err)
	switch service.KindOf(err) {
	case service.KindNotFound:
		response.NotFound(c, msg)
	case service.KindForbidden:
		if errors.Is(err, service.ErrNotAuthenticated) {
			response.Unauthorized(c, msg)
			return
		}
		response.Forbidden(c, msg)
	case service.KindConflict:
		response.Conflict(c, msg)
	case service.KindInvalid:
		if fields := service.FieldsOf(err); len(fields) > 0 {
			response.ErrorWithData(c, http.StatusBadRequest, msg, gin.H{"fields": fields})
			return
		}
		response.BadRequest(c, msg)
	case service.KindGone:
		response.Gone(c, msg)
	default:
		response.InternalError(c, msg)
	}
}
