package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"proposal-management-api/apperrors"
	"proposal-management-api/middleware"
	"proposal-management-api/policy"
)

func statusForKind(k apperrors.Kind) int {
	switch k {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict, apperrors.KindInvalidState, apperrors.KindIllegalTransition:
		return http.StatusConflict
	case apperrors.KindIncompleteTeam:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body the UI maps to localized messages.
// Internal details never leave the server.
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	body := gin.H{"success": false, "code": kind}

	var appErr *apperrors.Error
	switch {
	case kind == apperrors.KindInternal:
		body["error"] = "Internal server error"
		_ = c.Error(err)
	case errors.As(err, &appErr):
		body["error"] = appErr.Error()
		if appErr.Reason != "" {
			body["reason"] = appErr.Reason
		}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
	}
	c.AbortWithStatusJSON(statusForKind(kind), body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
		"code":    apperrors.KindValidation,
	})
}

func respondOK(c *gin.Context, status int, payload gin.H) {
	payload["success"] = true
	c.JSON(status, payload)
}

// uintParam parses a positive path parameter.
func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func actor(c *gin.Context) policy.Actor {
	return middleware.ActorFromContext(c)
}

// bindJSON decodes the body; malformed JSON is a 400 before any service call.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
