package handler

import (
	"errors"
	"net/http"
	"strconv"

	"urbansetu/model"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

// ForceSignout is the error code clients treat as "clear local state and go
// to the login page".
const ForceSignout = "force_signout"

// respondError maps use-case errors onto the response envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrTooManyAttempts):
		utils.TrackError("auth", "confirmation_lockout")
		c.JSON(http.StatusForbidden, &utils.Response{
			Status:  http.StatusForbidden,
			Message: "Too many failed attempts. You have been signed out of every session.",
			Error:   ForceSignout,
		})
	case errors.Is(err, model.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrSessionInvalid):
		utils.Unauthorized(c, err.Error())
	case errors.Is(err, model.ErrForbidden), errors.Is(err, model.ErrLocked):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrInsufficientCoins):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, model.ErrDuplicate),
		errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrVersionConflict),
		errors.Is(err, model.ErrAlreadyReported),
		errors.Is(err, model.ErrRentLocked):
		utils.Conflict(c, err.Error())
	default:
		utils.TrackError("handler", "internal")
		utils.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		utils.InternalError(c, "Internal server error")
	}
}

// bindJSON binds the body and answers 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.TrackError("validation", "invalid_body")
		utils.BadRequest(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		utils.TrackError("validation", "invalid_query")
		utils.BadRequest(c, "Invalid query: "+err.Error())
		return false
	}
	return true
}

// pageParams reads page and limit query values, leaving bad input to
// model.NormalizePage.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}
