// Package httpapi is the thin gin HTTP surface over the task engine
// (§6.2), grounded on the teacher's internal/handlers + internal/server
// package pair: one handler struct per resource, a shared
// RespondOK/RespondError envelope, and router wiring kept separate from
// handler logic.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
