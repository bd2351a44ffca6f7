package progress

import (
	"errors"
	"fmt"

	"github.com/yungbote/pathprogress/internal/platform/apierr"
)

var (
	ErrPathNotFound  = fmt.Errorf("path not found: %w", apierr.ErrNotFound)
	ErrUnknownItem   = fmt.Errorf("item does not belong to path: %w", apierr.ErrInvalidArgument)
	ErrInvalidKey    = fmt.Errorf("progress key requires a path id: %w", apierr.ErrInvalidArgument)
	ErrInvalidStatus = fmt.Errorf("unknown item status: %w", apierr.ErrInvalidArgument)

	errMalformedSnapshot = errors.New("malformed progress snapshot")
)
