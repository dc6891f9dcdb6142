package tools

import (
	"strings"

	"github.com/google/uuid"
)

// UUID returns a time-based uuid without dashes.
func UUID() string {
	u, err := uuid.NewUUID()
	if err != nil {
		return strings.Replace(uuid.NewString(), "-", "", 4)
	}
	return strings.Replace(u.String(), "-", "", 4)
}
