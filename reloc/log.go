package reloc

import (
	"fmt"
	"os"
)

// Planning diagnostics to stderr, controlled by the RELOC_LOG_PLAN
// environment variable. The mover path never logs: by the time it runs
// there is nothing to log through.
var logPlan = os.Getenv("RELOC_LOG_PLAN") != ""

func planLogf(format string, args ...any) {
	if logPlan {
		fmt.Fprintf(os.Stderr, "[PLAN] "+format+"\n", args...)
	}
}
