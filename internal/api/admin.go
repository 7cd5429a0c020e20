package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/swissqr/internal/admin"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

func (h *Handler) ListUsers(c *gin.Context) {
	users := h.Admin.Users(c.Query("active") == "true")
	if users == nil {
		users = []schema.User{}
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) ListTokens(c *gin.Context) {
	tokens := h.Admin.Tokens(admin.TokenFilter{
		UserID:     schema.ParseUserID(c.Query("user")),
		ActiveOnly: c.Query("active") == "true",
	})
	if tokens == nil {
		tokens = []schema.Token{}
	}
	c.JSON(http.StatusOK, tokens)
}

func (h *Handler) ListLogs(c *gin.Context) {
	f, ok := accessFilter(c)
	if !ok {
		return
	}
	entries := h.Admin.AccessLogs(f)
	if entries == nil {
		entries = []schema.Access{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) SummarizeLogs(c *gin.Context) {
	f, ok := accessFilter(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Admin.SummarizeAccess(f))
}

// accessFilter reads the log filter from the query string. On failure it
// writes the error response itself.
func accessFilter(c *gin.Context) (admin.AccessFilter, bool) {
	f := admin.AccessFilter{TokenID: schema.ParseTokenID(c.Query("token"))}

	var err error
	for _, p := range []struct {
		name string
		dst  *int
	}{{"status", &f.Status}, {"limit", &f.Limit}} {
		if v := c.Query(p.name); v != "" {
			if *p.dst, err = strconv.Atoi(v); err != nil {
				fail(c, http.StatusBadRequest, ReasonInvalidRequest, "Illegal value for parameter '"+p.name+"'.")
				return f, false
			}
		}
	}

	if f.After, err = admin.ParseDate(c.Query("after")); err != nil {
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, err.Error())
		return f, false
	}
	if f.Before, err = admin.ParseDate(c.Query("before")); err != nil {
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, err.Error())
		return f, false
	}
	return f, true
}

// adminFailure maps an admin.Service error onto a response.
func (h *Handler) adminFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, admin.ErrUserNotFound), errors.Is(err, admin.ErrTokenNotFound):
		fail(c, http.StatusNotFound, ReasonNotFound, err.Error())
	case errors.Is(err, admin.ErrInvalidEmail),
		errors.Is(err, admin.ErrEmailInUse),
		errors.Is(err, admin.ErrPasswordTooShort),
		errors.Is(err, admin.ErrNoPermissions),
		errors.Is(err, admin.ErrUserInactive),
		errors.Is(err, admin.ErrUserUnconfirmed):
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, err.Error())
	default:
		h.internal(c, err)
	}
}

// AdminCreateUser creates a confirmed user on behalf of an operator.
func (h *Handler) AdminCreateUser(c *gin.Context) {
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
		Confirmed:   true,
	})
	if err != nil {
		h.adminFailure(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// InvalidateUser deactivates a user together with all of its tokens.
func (h *Handler) InvalidateUser(c *gin.Context) {
	u, n, err := h.Admin.InvalidateUser(schema.ParseUserID(c.Param("id")))
	if err != nil {
		h.adminFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "tokens": n})
}

func (h *Handler) CreateToken(c *gin.Context) {
	var input struct {
		UserID      schema.UserID       `json:"userId" binding:"required"`
		Permissions []schema.Permission `json:"permissions" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, "HTTP body could not be parsed into a valid token request: "+err.Error())
		return
	}

	t, err := h.Admin.CreateToken(input.UserID, input.Permissions...)
	if err != nil {
		h.adminFailure(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// InvalidateToken revokes a token. Later requests carrying it are rejected.
func (h *Handler) InvalidateToken(c *gin.Context) {
	t, err := h.Admin.InvalidateToken(schema.ParseTokenID(c.Param("id")))
	if err != nil {
		h.adminFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
