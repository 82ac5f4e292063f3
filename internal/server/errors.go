// Package server provides the HTTP front end that renders the news page and
// serves static files.
package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/newsdesk/internal/rendering"
	"github.com/jonathan/newsdesk/internal/static"
)

// Response bodies for the plain-text error pages.
const (
	msgTemplateMissing = "file not exist"
	msgResourceMissing = "Resource missing"
	msgForbidden       = "access forbidden"
	msgWrongPermission = "wrong file permission"
	msgInternal        = "internal server error"
)

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch {
	case rendering.IsTemplateNotFound(err), errors.Is(err, static.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, static.ErrOutsideRoot),
		errors.Is(err, static.ErrNotRegular),
		errors.Is(err, static.ErrUnreadable):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the body shown to the client for err.
func ErrorMessage(err error) string {
	switch {
	case rendering.IsTemplateNotFound(err):
		return msgTemplateMissing
	case errors.Is(err, static.ErrNotFound):
		return msgResourceMissing
	case errors.Is(err, static.ErrUnreadable):
		return msgWrongPermission
	case errors.Is(err, static.ErrOutsideRoot), errors.Is(err, static.ErrNotRegular):
		return msgForbidden
	default:
		return msgInternal
	}
}
