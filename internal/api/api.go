// Package api holds the HTTP handlers of the SwissQR service.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/swissqr/internal/admin"
	"github.com/celerix-dev/swissqr/internal/logger"
	"github.com/celerix-dev/swissqr/internal/qrbill"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

// Error reasons returned in the "error" field of a failed response.
const (
	ReasonInvalidRequest  = "invalid_request"
	ReasonNotFound        = "not_found"
	ReasonUnsupportedType = "unsupported_content_type"
	ReasonTooLarge        = "payload_too_large"
	ReasonNotImplemented  = "not_implemented"
	ReasonInternal        = "internal_error"
)

// maxScanSize bounds uploaded documents.
const maxScanSize = 20 << 20

type Handler struct {
	Admin    *admin.Service
	Renderer qrbill.Renderer
	Decoder  qrbill.Decoder
	Logger   *logger.Logger
	Started  time.Time
}

func fail(c *gin.Context, status int, reason, description string) {
	c.AbortWithStatusJSON(status, gin.H{"error": reason, "description": description})
}

func (h *Handler) internal(c *gin.Context, err error) {
	h.Logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	fail(c, http.StatusInternalServerError, ReasonInternal, err.Error())
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.Started).Round(time.Second).String(),
	})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var input struct {
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, "HTTP body could not be parsed into a valid user request: "+err.Error())
		return
	}

	u, err := h.Admin.CreateUser(admin.NewUser{
		Email:       input.Email,
		Password:    input.Password,
		Description: input.Description,
	})
	switch {
	case errors.Is(err, admin.ErrInvalidEmail), errors.Is(err, admin.ErrPasswordTooShort), errors.Is(err, admin.ErrEmailInUse):
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, err.Error())
		return
	case err != nil:
		h.internal(c, err)
		return
	}

	h.Logger.Debug("user awaiting confirmation", "id", u.ID, "nonce", u.Nonce())
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"id":          u.ID,
		"description": "User '" + u.Email + "' created successfully.",
	})
}

func (h *Handler) ConfirmUser(c *gin.Context) {
	id := schema.ParseUserID(c.Param("user"))
	nonce, err := strconv.ParseInt(c.Param("nonce"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, "Nonce is missing from the request or invalid.")
		return
	}

	u, err := h.Admin.ConfirmUser(id, nonce)
	switch {
	case errors.Is(err, admin.ErrUserNotFound):
		fail(c, http.StatusNotFound, ReasonNotFound, "Requested user cannot be confirmed.")
		return
	case errors.Is(err, admin.ErrAlreadyConfirmed), errors.Is(err, admin.ErrNonceMismatch):
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, "Requested user cannot be confirmed: "+err.Error()+".")
		return
	case err != nil:
		h.internal(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"description": "User '" + u.Email + "' confirmed successfully.",
	})
}
