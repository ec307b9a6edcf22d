package pst

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/mailattic/mailattic/internal/logging"
)

// converterBin is the external PST converter from the libpst suite.
const converterBin = "readpst"

// ConverterAvailable reports whether readpst is on PATH.
func ConverterAvailable() bool {
	_, err := exec.LookPath(converterBin)
	return err == nil
}

// Convert runs readpst over pstPath, writing one .eml file per message
// under outDir with the PST folder hierarchy preserved as directories.
// The flags mean: -D include deleted items, -r recursive folder
// structure, -e write EML files with extensions.
func Convert(ctx context.Context, pstPath, outDir string) error {
	abs, err := filepath.Abs(pstPath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", pstPath, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", outDir, err)
	}

	cmd := exec.CommandContext(ctx, converterBin, "-D", "-r", "-e", "-o", outDir, abs)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Log.Infof("converting %s with %s", pstPath, converterBin)
	if err := cmd.Run(); err != nil {
		detail := stderr.String()
		if detail == "" {
			detail = stdout.String()
		}
		return fmt.Errorf("%s failed on %s: %w\n%s\nHints: make sure the file is a valid .pst (not .olm), not password-protected, and not open in Outlook. OLM exports can be ingested directly as archives", converterBin, pstPath, err, detail)
	}
	return nil
}
