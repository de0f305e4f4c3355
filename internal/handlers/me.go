package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"task-tracker/backend/internal/middleware"
)

// CacheInvalidator drops cached state for a user.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID uint)
}

func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), session.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"created_at": user.CreatedAt,
	})
}

// DeleteMe removes the account and, through the store, every task and
// token it owns.
func (h *AuthHandler) DeleteMe(invalidator CacheInvalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := middleware.CurrentSession(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
			return
		}

		if err := h.authService.DeleteAccount(c.Request.Context(), session.UserID); err != nil {
			respondError(c, h.logger, err)
			return
		}
		if invalidator != nil {
			invalidator.Invalidate(c.Request.Context(), session.UserID)
		}
		c.Status(http.StatusNoContent)
	}
}
