package teacher

import (
	"fmt"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

var (
	ErrNotTeacher = fmt.Errorf("%w: command requires the teacher role", types.ErrPermission)
	ErrNotOwner   = fmt.Errorf("%w: only the session's teacher may drive it", types.ErrPermission)
)
