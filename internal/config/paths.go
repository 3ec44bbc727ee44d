package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the directories the application reads from and writes to.
// Relative locations resolve against the executable directory so the
// binaries behave the same whether started from the repo or a dist folder.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ExportsDir    string
	LogsDir       string
}

// GetPaths returns the application paths relative to the executable location
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	exeDir := filepath.Dir(exe)
	dataDir := filepath.Join(exeDir, "data")

	return &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		ExportsDir:    filepath.Join(dataDir, "exports"),
		LogsDir:       filepath.Join(exeDir, "logs"),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ExportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ResolvePath returns path unchanged when absolute or present relative to
// the working directory, otherwise relative to the executable directory.
func ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || FileExists(path) {
		return path
	}
	paths, err := GetPaths()
	if err != nil {
		return path
	}
	candidate := filepath.Join(paths.ExecutableDir, path)
	if FileExists(candidate) {
		return candidate
	}
	return path
}

// FileExists reports whether path names an existing file or directory.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LogPathResolution logs path resolution information for debugging
func (p *Paths) LogPathResolution(cfg *Config) {
	slog.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("exports", p.ExportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("files",
			slog.String("dataset", cfg.Data.Path),
			slog.String("layouts", cfg.Data.LayoutsFile),
		))
}
