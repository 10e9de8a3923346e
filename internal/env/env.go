package env

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/rotisserie/eris"
)

// WorkDir returns the per-user cache directory cvendor builds into when the
// caller provides no scratch directory.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".cvendor"), nil
}

// OutDir picks the install prefix for lib: explicit if non-empty, then the
// build tool's OUT_DIR, then WorkDir()/<lib>-<goos>-<goarch>.
// The directory is created with mode 0700 if missing.
func OutDir(explicit, lib string) (string, error) {
	dir := explicit
	if dir == "" {
		dir = os.Getenv("OUT_DIR")
	}
	if dir == "" {
		work, err := WorkDir()
		if err != nil {
			return "", eris.Wrap(err, "failed to locate user cache directory")
		}
		dir = filepath.Join(work, lib+"-"+runtime.GOOS+"-"+runtime.GOARCH)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", eris.Wrapf(err, "failed to create output directory %s", dir)
	}
	return dir, nil
}
