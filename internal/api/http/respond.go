package http

import (
	"errors"

	"jobboard/internal/domain"
	"jobboard/internal/usecase"

	"github.com/gin-gonic/gin"
)

// render writes a gateway result in the response envelope.
func render[T any](c *gin.Context, status int, res domain.Result[T]) {
	if !res.Success {
		renderFailure(c, res.Kind, res.Error)
		return
	}
	c.JSON(status, res)
}

func renderFailure(c *gin.Context, kind domain.ErrorKind, msg string) {
	c.JSON(statusFor(kind), domain.Fail[any](kind, msg))
}

// renderError classifies err the way the gateway does.
func renderError(c *gin.Context, err error) {
	var resErr *domain.ResultError
	if errors.As(err, &resErr) {
		renderFailure(c, resErr.Kind, resErr.Msg)
		return
	}
	kind, msg := usecase.Classify(err)
	renderFailure(c, kind, msg)
}

// bind decodes a JSON body into req and validates it.
func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		renderFailure(c, domain.KindValidation, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		renderFailure(c, domain.KindValidation, validationMessage(err))
		return false
	}
	return true
}

// requireUser fails the request for anonymous callers.
func requireUser(c *gin.Context) (string, bool) {
	id := userID(c)
	if id == "" {
		renderFailure(c, domain.KindAuth, domain.ErrAuthRequired.Error())
		return "", false
	}
	return id, true
}

