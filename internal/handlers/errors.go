package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"task-tracker/backend/internal/flatfile"
	"task-tracker/backend/internal/repositories"
	"task-tracker/backend/internal/services"
)

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   code,
		"message": message,
	})
}

// respondError maps service and store errors onto HTTP responses. Anything
// unrecognised is logged and reported as a 500 without details.
func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	var validationErr *services.ValidationError
	var storeErr *repositories.StoreError

	switch {
	case errors.As(err, &validationErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": validationErr.Message,
			"field":   validationErr.Field,
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		abortWithError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, services.ErrInvalidToken):
		abortWithError(c, http.StatusUnauthorized, "invalid_token", "Token is invalid or expired")
	case errors.Is(err, services.ErrEmailAlreadyRegistered):
		abortWithError(c, http.StatusConflict, "email_taken", "Email already registered")
	case errors.Is(err, services.ErrTaskNotFound):
		abortWithError(c, http.StatusNotFound, "task_not_found", "Task not found")
	case errors.Is(err, services.ErrUserNotFound):
		abortWithError(c, http.StatusNotFound, "user_not_found", "User not found")
	case errors.Is(err, flatfile.ErrDelimiterInField):
		abortWithError(c, http.StatusUnprocessableEntity, "unexportable_task", "A task contains text the export format cannot hold: "+err.Error())
	case errors.As(err, &storeErr):
		logger.Error().Err(err).Str("op", storeErr.Op).Str("path", c.FullPath()).Msg("store failure")
		abortWithError(c, http.StatusInternalServerError, "store_failure", "Failed to access storage")
	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		abortWithError(c, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func bindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": "Invalid request format",
		"details": err.Error(),
	})
}
