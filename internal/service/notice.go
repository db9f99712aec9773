package service

import (
	"errors"
	"net/http"

	"bookcourier/internal/apperr"
)

// Notice levels
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is the toast shown after an action.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func succeeded(msg string) Notice {
	return Notice{Level: NoticeSuccess, Message: msg}
}

// failed picks the toast for err. Errors that carry a message meant for the
// user (validation, auth, conflict) use it; everything else gets fallback.
func failed(err error, fallback string) Notice {
	switch {
	case errors.Is(err, apperr.ErrNotSignedIn):
		return Notice{Level: NoticeError, Message: "Please login first"}
	case errors.Is(err, apperr.ErrInFlight):
		return Notice{Level: NoticeError, Message: "Already in progress, please wait"}
	case apperr.IsValidation(err), apperr.IsAuth(err), apperr.IsConflict(err):
		return Notice{Level: NoticeError, Message: apperr.Message(err)}
	}
	switch apperr.StatusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return Notice{Level: NoticeError, Message: "Please login again"}
	}
	return Notice{Level: NoticeError, Message: fallback}
}
