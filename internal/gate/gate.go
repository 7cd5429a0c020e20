// Package gate decides whether a request may reach its handler, based on the
// bearer token it carries, and records an access entry for every request
// made with a known token.
package gate

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/swissqr/internal/logger"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

// Defaults for where the credential is read from.
const (
	DefaultHeader = "X-API-Key"
	DefaultParam  = "api_key"
)

// Rejection reasons, stable and machine-readable.
const (
	ReasonCredentialMissing       = "credential_missing"
	ReasonTokenNonexistent        = "token_nonexistent"
	ReasonTokenInvalidated        = "token_invalidated"
	ReasonInsufficientPermissions = "insufficient_permissions"
)

// TokenKey is the gin context key under which the resolved token is stored.
const TokenKey = "swissqr.token"

// TokenReader looks tokens up by identifier.
type TokenReader interface {
	Get(id schema.TokenID) (schema.Token, bool)
}

// Decision is the outcome of one gate evaluation. Token is set whenever the
// credential resolved to a stored token, even if the request was rejected.
type Decision struct {
	Admitted bool
	Status   int
	Reason   string
	Message  string
	Token    *schema.Token
}

// Gate holds the token store and the credential location.
type Gate struct {
	tokens TokenReader
	header string
	param  string
	logger *logger.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithHeader sets the header the credential is read from.
func WithHeader(name string) Option {
	return func(g *Gate) {
		if name != "" {
			g.header = name
		}
	}
}

// WithParam sets the query parameter used when the header is absent.
func WithParam(name string) Option {
	return func(g *Gate) {
		if name != "" {
			g.param = name
		}
	}
}

// New creates a Gate reading tokens from tokens.
func New(tokens TokenReader, l *logger.Logger, opts ...Option) *Gate {
	g := &Gate{
		tokens: tokens,
		header: DefaultHeader,
		param:  DefaultParam,
		logger: l,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Header returns the name of the header the credential is read from.
func (g *Gate) Header() string { return g.header }

// Decide evaluates r against the required permissions. A token must hold
// every required permission to be admitted.
func (g *Gate) Decide(r *http.Request, required schema.PermissionSet) Decision {
	if required.Empty() {
		return Decision{Admitted: true}
	}

	credential := g.credential(r)
	if credential == "" {
		return reject(http.StatusUnauthorized, ReasonCredentialMissing, "API token is missing from request.", nil)
	}

	token, ok := g.tokens.Get(schema.ParseTokenID(credential))
	if !ok {
		return reject(http.StatusUnauthorized, ReasonTokenNonexistent, "API token is nonexistent.", nil)
	}

	if !token.Active {
		return reject(http.StatusForbidden, ReasonTokenInvalidated, "API token has been invalidated.", &token)
	}

	if !token.Permissions.HasAll(required) {
		return reject(http.StatusForbidden, ReasonInsufficientPermissions, "API token does not provide access to given method.", &token)
	}

	return Decision{Admitted: true, Status: http.StatusOK, Token: &token}
}

func reject(status int, reason, msg string, token *schema.Token) Decision {
	return Decision{Status: status, Reason: reason, Message: msg, Token: token}
}

// credential prefers the header, with an optional "Bearer " prefix, over the
// query parameter.
func (g *Gate) credential(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get(g.header))
	if v == "Bearer" {
		v = ""
	}
	if v = strings.TrimSpace(strings.TrimPrefix(v, "Bearer ")); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get(g.param))
}

// Require returns middleware admitting only requests whose token holds all
// of perms. With no perms every request is admitted.
func (g *Gate) Require(perms ...schema.Permission) gin.HandlerFunc {
	required := schema.NewPermissionSet(perms...)
	return func(c *gin.Context) {
		d := g.Decide(c.Request, required)
		if d.Token != nil {
			attach(c, *d.Token)
		}

		if !d.Admitted {
			g.logger.Debug("request rejected",
				"path", c.Request.URL.Path,
				"reason", d.Reason,
				"status", d.Status,
			)
			c.AbortWithStatusJSON(d.Status, gin.H{"error": d.Reason, "description": d.Message})
			return
		}
		c.Next()
	}
}

type ctxKey struct{}

func attach(c *gin.Context, t schema.Token) {
	c.Set(TokenKey, t)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, t))
}

// TokenFromContext returns the token resolved for the request, if any.
// ctx may be a request context or a *gin.Context.
func TokenFromContext(ctx context.Context) (schema.Token, bool) {
	if c, ok := ctx.(*gin.Context); ok {
		if v, ok := c.Get(TokenKey); ok {
			t, ok := v.(schema.Token)
			return t, ok
		}
		return schema.Token{}, false
	}
	t, ok := ctx.Value(ctxKey{}).(schema.Token)
	return t, ok
}
