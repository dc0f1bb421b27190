package infra

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	apperrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/validation"
)

// problem is an RFC 7807 response body. Errors carries field-level
// violations for invalid payloads
type problem struct {
	Type   string                 `json:"type"`
	Title  string                 `json:"title"`
	Status int                    `json:"status"`
	Detail string                 `json:"detail,omitempty"`
	Errors []validation.Violation `json:"errors,omitempty"`
}

const problemTypeBlank = "about:blank"

// HTTPErrorHandler maps domain outcomes and payload violations to
// statuses and RFC 7807 bodies. Internal causes are logged with
// context but never leak to the caller
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var pldErr *validation.PayloadError
	if errors.As(err, &pldErr) {
		respondProblem(c, &problem{
			Type:   problemTypeBlank,
			Title:  "Invalid request payload",
			Status: http.StatusBadRequest,
			Errors: pldErr.Violations(),
		})
		return
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		respondProblem(c, &problem{
			Type:   problemTypeBlank,
			Title:  http.StatusText(echoErr.Code),
			Status: echoErr.Code,
			Detail: detailOf(echoErr),
		})
		return
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		status, detail := statusOf(appErr)
		if appErr.Code() == apperrors.CodeInternal || appErr.Code() == apperrors.CodeUnavailable {
			logrus.Errorf("request %s %s failed - %v", c.Request().Method, c.Request().URL.Path, err)
		}
		respondProblem(c, &problem{
			Type:   problemTypeBlank,
			Title:  http.StatusText(status),
			Status: status,
			Detail: detail,
		})
		return
	}

	logrus.Errorf("unexpected error on %s %s - %v", c.Request().Method, c.Request().URL.Path, err)
	respondProblem(c, &problem{
		Type:   problemTypeBlank,
		Title:  http.StatusText(http.StatusInternalServerError),
		Status: http.StatusInternalServerError,
	})
}

func statusOf(err *apperrors.Error) (int, string) {
	switch err.Code() {
	case apperrors.CodeNotFound:
		return http.StatusNotFound, err.Message()
	case apperrors.CodeConflict:
		return http.StatusConflict, err.Message()
	case apperrors.CodeUnavailable:
		return http.StatusServiceUnavailable, err.Message()
	default:
		// stable code only, internal detail stays in the log
		return http.StatusInternalServerError, ""
	}
}

func detailOf(err *echo.HTTPError) string {
	if msg, ok := err.Message.(string); ok {
		return msg
	}
	return ""
}

func respondProblem(c echo.Context, p *problem) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(p.Status)
	} else {
		err = c.JSON(p.Status, p)
	}
	if err != nil {
		logrus.Errorf("failed to write problem response - %v", err)
	}
}
