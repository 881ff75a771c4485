package feed

import (
	"fmt"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

var (
	ErrEmptySessionID = fmt.Errorf("%w: session id is required", types.ErrValidation)
	ErrNilCallback    = fmt.Errorf("%w: snapshot callback is required", types.ErrValidation)
	ErrFeedClosed     = fmt.Errorf("%w: feed is closed", types.ErrTransient)
)
