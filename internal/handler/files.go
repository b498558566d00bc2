package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jok6r1/src-diplom/internal/logger"
)

// FilesHandler exposes a fixed on-disk directory of installer artifacts for
// the reporting agent. Listing and download are thin filesystem wrappers; the
// only logic is keeping requests inside the directory.
type FilesHandler struct {
	Dir string
}

// NewFilesHandler resolves the directory to an absolute path and creates it
// when missing so a fresh deployment lists an empty directory instead of
// erroring.
func NewFilesHandler(dir string) *FilesHandler {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		logger.Log.Warnw("creating files dir failed", "dir", abs, "error", err)
	}
	return &FilesHandler{Dir: abs}
}

// installerExt returns the platform-appropriate installer extension.
func installerExt() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ".deb"
}

// filenamePattern limits downloads to simple installer names: word
// characters and dashes followed by a known extension. Anything else (path
// separators, dots, encodings) is rejected outright.
var filenamePattern = regexp.MustCompile(`^[\w-]+\.(exe|deb)$`)

// List returns the regular files in the directory matching the platform's
// installer extension, plus the platform name itself.
func (h *FilesHandler) List(c echo.Context) error {
	entries, err := os.ReadDir(h.Dir)
	if err != nil {
		logger.Log.Errorw("listing files failed", "dir", h.Dir, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list files"})
	}

	ext := installerExt()
	files := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		files = append(files, e.Name())
	}
	return c.JSON(http.StatusOK, echo.Map{"files": files, "system": runtime.GOOS})
}

// Download streams a named installer. The name must match the strict
// filename pattern and the resolved path must stay inside the directory,
// which blocks traversal attempts.
func (h *FilesHandler) Download(c echo.Context) error {
	filename := c.Param("filename")
	if !filenamePattern.MatchString(filename) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid or missing file"})
	}

	path := filepath.Join(h.Dir, filename)
	resolved, err := filepath.Abs(path)
	if err != nil || !strings.HasPrefix(resolved, h.Dir+string(os.PathSeparator)) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid or missing file"})
	}

	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid or missing file"})
	}

	return c.Attachment(resolved, filename)
}
