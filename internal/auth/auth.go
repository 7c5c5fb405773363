// Package auth resolves the dashboard user for a request.
//
// A bearer token is exchanged for an external identity at the identity
// provider's user-info endpoint, and the identity is mapped to a numeric user
// id through the link table. Outside production a request without a token
// runs as the configured default user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/zulandar/cockpit/internal/db"
	"github.com/zulandar/cockpit/internal/models"
)

// ErrUnauthenticated is returned when no user can be resolved.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// ContextKey is the gin context key holding the resolved user id.
const ContextKey = "cockpit.user_id"

const maxUserInfoBytes = 1 << 20

// Options configures a Resolver.
type Options struct {
	DefaultUserID int64
	Production    bool
	UserInfoURL   string
	APIKey        string
	LinksTable    string
	HTTPClient    *http.Client
}

// Resolver maps request credentials to a user id.
type Resolver struct {
	db   *gorm.DB
	opts Options
}

// NewResolver returns a resolver reading links from gdb.
func NewResolver(gdb *gorm.DB, opts Options) *Resolver {
	if opts.LinksTable == "" {
		opts.LinksTable = "app_user_links"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Resolver{db: gdb, opts: opts}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Resolve returns the user id for an Authorization header value.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (int64, error) {
	token := BearerToken(authorization)
	if token == "" {
		if !r.opts.Production && r.opts.DefaultUserID > 0 {
			return r.opts.DefaultUserID, nil
		}
		return 0, ErrUnauthenticated
	}
	uid, err := r.identity(ctx, token)
	if err != nil {
		return 0, err
	}
	return r.lookup(ctx, uid)
}

// identity asks the user-info endpoint who owns token.
func (r *Resolver) identity(ctx context.Context, token string) (string, error) {
	if r.opts.UserInfoURL == "" {
		return "", fmt.Errorf("%w: no identity endpoint configured", ErrUnauthenticated)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.opts.HTTPClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.opts.UserInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("auth: build user-info request: %w", err)
	}
	if r.opts.APIKey != "" {
		req.Header.Set("apikey", r.opts.APIKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: user-info request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: identity provider returned %d", ErrUnauthenticated, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return "", fmt.Errorf("auth: read user-info: %w", err)
	}
	uid := gjson.GetBytes(body, "id").String()
	if uid == "" {
		uid = gjson.GetBytes(body, "user.id").String()
	}
	if uid == "" {
		return "", fmt.Errorf("%w: identity has no id", ErrUnauthenticated)
	}
	return uid, nil
}

// lookup maps an external identity to a user id.
func (r *Resolver) lookup(ctx context.Context, uid string) (int64, error) {
	var link models.AppUserLink
	err := r.db.WithContext(ctx).Table(r.opts.LinksTable).
		Select("app_user_id").Where("auth_uid = ?", uid).Take(&link).Error
	switch {
	case err == nil && link.AppUserID > 0:
		return link.AppUserID, nil
	case err == nil, errors.Is(err, gorm.ErrRecordNotFound), db.IsMissingRelation(err):
		return 0, fmt.Errorf("%w: identity %s is not linked", ErrUnauthenticated, uid)
	default:
		return 0, fmt.Errorf("auth: lookup link: %w", err)
	}
}

// Middleware resolves the user and stores it under ContextKey. Unresolved
// requests are rejected with 401; lookup failures with 500.
func Middleware(r *Resolver, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(c *gin.Context) {
		userID, err := r.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		switch {
		case err == nil:
			c.Set(ContextKey, userID)
			c.Next()
		case errors.Is(err, ErrUnauthenticated):
			logger.Debug("auth: rejected", "path", c.Request.URL.Path, "reason", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		default:
			logger.Error("auth: resolve user", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	}
}

// UserID returns the user resolved by Middleware.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ContextKey)
}
