// Package staging makes host paths visible to a sandboxed reader through a
// bind mount, by symlinking (or copying) them under the bind's host root.
package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
)

// BindMap is a HOST:CONTAINER directory pair.
type BindMap struct {
	Host      string
	Container string
}

func (b BindMap) IsZero() bool { return b.Host == "" && b.Container == "" }

// ParseBindMap accepts exactly HOST:CONTAINER. An empty string is no mapping.
func ParseBindMap(raw string) (BindMap, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return BindMap{}, nil
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return BindMap{}, knowledgeModel.NewConfigError("bind_map", fmt.Sprintf("%q is not HOST:CONTAINER", raw))
	}
	host, container := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if !filepath.IsAbs(host) || !strings.HasPrefix(container, "/") {
		return BindMap{}, knowledgeModel.NewConfigError("bind_map", fmt.Sprintf("%q must use absolute paths", raw))
	}
	return BindMap{Host: filepath.Clean(host), Container: filepath.ToSlash(filepath.Clean(container))}, nil
}

// RewriteForContainer maps a path under the host root to its container path.
func RewriteForContainer(path string, bind BindMap) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(bind.Host, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(filepath.Join(bind.Container, rel)), true
}

// Staged is where a source ended up: the host side and the path a reader
// inside the container sees.
type Staged struct {
	Source        string
	HostPath      string
	ContainerPath string
}

// Stage places src under stageRoot (default <host>/.wb_stage) as a symlink,
// falling back to a recursive copy when links are not possible. Each source
// gets its own <stageRoot>/<hash of abs path>/<basename> slot so sources that
// share a base name never overwrite each other.
func Stage(src string, bind BindMap, stageRoot string) (Staged, error) {
	abs, err := filepath.Abs(src)
	if err != nil {
		return Staged{}, err
	}
	if _, err := os.Stat(abs); err != nil {
		return Staged{}, fmt.Errorf("%w: %s", knowledgeModel.ErrPathNotFound, src)
	}
	if stageRoot == "" {
		stageRoot = filepath.Join(bind.Host, config.StageDirName)
	}
	slot := filepath.Join(stageRoot, stageSlot(abs))
	if err := os.MkdirAll(slot, 0o755); err != nil {
		return Staged{}, fmt.Errorf("create stage root: %w", err)
	}

	dst := filepath.Join(slot, filepath.Base(abs))
	if err := os.RemoveAll(dst); err != nil {
		return Staged{}, fmt.Errorf("clear stale stage %s: %w", dst, err)
	}
	if err := os.Symlink(abs, dst); err != nil {
		logger_i.NewLogger("staging").Warn("Symlink failed, copying instead", "source", abs, "error", err)
		if err := copyPath(abs, dst); err != nil {
			return Staged{}, fmt.Errorf("stage %s: %w", src, err)
		}
	}

	staged := Staged{Source: src, HostPath: dst}
	if cp, ok := RewriteForContainer(dst, bind); ok {
		staged.ContainerPath = cp
	} else if cp, ok := RewriteForContainer(abs, bind); ok {
		staged.ContainerPath = cp
	} else {
		staged.ContainerPath = "/work/" + filepath.Base(abs)
	}
	return staged, nil
}

func stageSlot(abs string) string {
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:12]
}

func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.CopyFS(dst, os.DirFS(src))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
