package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectDispatch = "actions.dispatch"
	SubjectInvoked  = "actions.invoked"
)

// BuildInvokedSubject builds the per-action audit subject, e.g. "actions.invoked.HEALTHCHECK_V1".
// Subject tokens cannot contain dots or wildcards, so those characters become underscores.
func BuildInvokedSubject(base, actionID string) string {
	if actionID == "" {
		actionID = "unknown"
	}
	safe := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(actionID)
	return fmt.Sprintf("%s.%s", base, safe)
}
