package httpx

import (
	"net/http"

	apperrors "github.com/campushq/portal-api/internal/errors"
)

// statusForCode maps the application error taxonomy onto HTTP status codes.
func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeAuthenticationFailed:
		return http.StatusUnauthorized
	case apperrors.ErrCodeRegistrationFailed:
		return http.StatusConflict
	case apperrors.ErrCodeProfileProvisioningFailed:
		return http.StatusBadGateway
	case apperrors.ErrCodeProfileNotFound, apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeProviderUnavailable:
		return http.StatusBadGateway
	case apperrors.ErrCodePasswordResetFailed:
		return http.StatusBadGateway
	case apperrors.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeCanceled:
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}

// RenderError writes an application error as a JSON response, deriving
// the status code and machine-readable code from the error taxonomy.
func RenderError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	WriteError(w, ErrorParams{
		Code:    statusForCode(code),
		ErrCode: string(code),
		Err:     err,
		Field:   apperrors.GetField(err),
	})
}
