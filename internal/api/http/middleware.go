package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"jobboard/internal/domain"
	"jobboard/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	userIDKey    = "user_id"
	userIDHeader = "X-User-ID"
)

// instrument opens a span per request and counts it by route template.
func instrument(tracer trace.Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		ctx, span := tracer.Start(c.Request.Context(), "HTTP "+method+" "+path, trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.target", c.Request.URL.Path),
		))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		metrics.HttpRequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, "Server Error")
		}
	}
}

// identify resolves the caller. With a secret configured the identity is the
// subject of an HS256 bearer token; otherwise it is the X-User-ID header.
// A request without credentials is anonymous.
func identify(secret string) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	return func(c *gin.Context) {
		if secret == "" {
			c.Set(userIDKey, strings.TrimSpace(c.GetHeader(userIDHeader)))
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(userIDKey, "")
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			abortUnauthorized(c, errors.New("invalid authorization header format"))
			return
		}

		var claims jwt.RegisteredClaims
		if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
			return []byte(secret), nil
		}); err != nil {
			abortUnauthorized(c, err)
			return
		}
		if claims.Subject == "" {
			abortUnauthorized(c, errors.New("token has no subject"))
			return
		}
		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, domain.Fail[any](domain.KindAuth, "invalid credentials: "+err.Error()))
}

// userID returns the caller resolved by identify, or "" when anonymous.
func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
