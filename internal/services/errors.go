package services

import (
	"fmt"
	"net/http"

	"github.com/yungbote/pathprogress/internal/platform/apierr"
)

const (
	CodePathNotFound     = "path_not_found"
	CodeProgressNotFound = "progress_not_found"
	CodeInvalidRequest   = "invalid_request"
	CodeInvalidStatus    = "invalid_status"
	CodeInvalidProgress  = "invalid_progress"
)

func notFound(code, format string, args ...any) error {
	return apierr.New(http.StatusNotFound, code, fmt.Errorf(format+": %w", append(args, apierr.ErrNotFound)...))
}

func invalid(code, format string, args ...any) error {
	return apierr.New(http.StatusBadRequest, code, fmt.Errorf(format+": %w", append(args, apierr.ErrInvalidArgument)...))
}
