package student

import (
	"fmt"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

var (
	ErrNotVoting         = fmt.Errorf("%w: submit is only valid while voting", types.ErrConflict)
	ErrAlreadyAttached   = fmt.Errorf("%w: reconciler already attached", types.ErrConflict)
	ErrSubmitUnavailable = fmt.Errorf("%w: choice submission failed", types.ErrTransient)
)
