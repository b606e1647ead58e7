package wpcom

import (
	"fmt"

	"github.com/segmentio/wplogin/lib/types"
)

// error codes returned in the "error" field of a failed OAuth2 request
const (
	CodeNeeds2FA          = "needs_2fa"
	CodeInvalidOTP        = "invalid_otp"
	CodeInvalidRequest    = "invalid_request"
	CodeInvalidGrant      = "invalid_grant"
	CodeIncorrectPassword = "incorrect_password"
	CodeUnknownUser       = "unknown_user"
	CodeAuthRequired      = "authorization_required"
)

type ErrorResponse struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
	// REST endpoints use "message" rather than "error_description"
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	desc := e.Description
	if desc == "" {
		desc = e.Message
	}
	if e.Code == "" {
		return fmt.Sprintf("wordpress.com: %d %s", e.StatusCode, desc)
	}
	return fmt.Sprintf("wordpress.com: %s: %s", e.Code, desc)
}

func (e *ErrorResponse) Is(target error) bool {
	switch target {
	case types.ErrInvalidCredentials:
		switch e.Code {
		case CodeInvalidRequest, CodeInvalidGrant, CodeIncorrectPassword, CodeUnknownUser:
			return true
		}
	case types.ErrInvalidOTP:
		return e.Code == CodeInvalidOTP
	}
	return false
}
