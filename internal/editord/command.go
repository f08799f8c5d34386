package editord

import (
	"fmt"
	"strconv"
	"strings"
)

// clearFoldsCommand is the normal-mode directive that removes every fold
const clearFoldsCommand = "normal! zE"

// runCommand interprets one ex-style command string against the fold store.
// The recognized grammar is exactly the fold wire contract:
//
//	normal! zE         clear all folds
//	<start>,<end>fo    create a fold over 1-based inclusive bounds
//
// Anything else is rejected.
func runCommand(store *FoldStore, cmd string) error {
	trimmed := strings.TrimSpace(cmd)
	if trimmed == clearFoldsCommand {
		store.Clear()
		return nil
	}

	start, end, ok := parseFoldCommand(trimmed)
	if !ok {
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err := store.Create(start, end); err != nil {
		return fmt.Errorf("command %q rejected: %w", cmd, err)
	}
	return nil
}

// parseFoldCommand parses "<start>,<end>fo" into its bounds.
// Returns ok=false if the string does not match the shape; bound validation
// is the store's job.
func parseFoldCommand(cmd string) (start, end int, ok bool) {
	body, found := strings.CutSuffix(cmd, "fo")
	if !found {
		return 0, 0, false
	}
	left, right, found := strings.Cut(body, ",")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.Atoi(left)
	if err != nil {
		return 0, 0, false
	}
	end, err = strconv.Atoi(right)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}
