package pst

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Preflight sanity-checks a source file before conversion, using
// file(1) when it is on PATH. A confident Outlook-for-Mac verdict
// aborts early with a corrective message; readpst would otherwise grind
// through the file and fail with something far less useful. A missing
// or failing file(1) is not an error.
func Preflight(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("source not found: %s", abs)
	}

	tool, err := exec.LookPath("file")
	if err != nil {
		return nil
	}
	out, err := exec.CommandContext(ctx, tool, "-b", abs).Output()
	if err != nil {
		return nil
	}
	verdict := strings.TrimSpace(string(out))
	if strings.Contains(strings.ToLower(verdict), "olm") {
		return fmt.Errorf("%s looks like an Outlook for Mac OLM export, not a PST (file says: %s); re-export as a PST from Outlook on Windows, or ingest the OLM archive directly", path, verdict)
	}
	return nil
}
