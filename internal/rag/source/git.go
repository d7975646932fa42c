package source

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
)

const unknownCommit = "unknown"

var (
	unsafeGitTokens = []string{";", "&&", "|", "$(", "`"}
	slugRe          = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// SafeGitURL accepts https, http and scp-style git@ URLs without shell
// metacharacters.
func SafeGitURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "git@") {
		return "", fmt.Errorf("%w: %q must start with https://, http:// or git@", knowledgeModel.ErrUnsafeGitURL, raw)
	}
	for _, tok := range unsafeGitTokens {
		if strings.Contains(s, tok) {
			return "", fmt.Errorf("%w: %q contains %q", knowledgeModel.ErrUnsafeGitURL, raw, tok)
		}
	}
	return s, nil
}

// SlugifyRepo names the clone directory after the last URL segment.
func SlugifyRepo(gitURL string) string {
	base := strings.TrimRight(gitURL, "/")
	if i := strings.LastIndexAny(base, "/:"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".git")
	slug := strings.ToLower(slugRe.ReplaceAllString(base, "-"))
	if slug == "" {
		return "repo"
	}
	return slug
}

// cloneOrRefresh shallow-clones into destRoot/<slug>, or resets an existing
// clone to the remote head.
func cloneOrRefresh(ctx context.Context, gitURL, destRoot string) (string, error) {
	safe, err := SafeGitURL(gitURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return "", err
	}
	target := filepath.Join(destRoot, SlugifyRepo(safe))
	log := logger_i.FromContext(ctx, "git_source")

	if _, err := os.Stat(filepath.Join(target, ".git")); err == nil {
		log.Info("Refreshing repo", "url", safe, "dest", target)
		if err := runGit(ctx, "-C", target, "fetch", "--all", "--depth", "1"); err != nil {
			return "", err
		}
		if err := runGit(ctx, "-C", target, "reset", "--hard", "origin/HEAD"); err != nil {
			return "", err
		}
		return target, nil
	}

	log.Info("Cloning repo", "url", safe, "dest", target)
	if err := runGit(ctx, "clone", "--depth", "1", safe, target); err != nil {
		return "", err
	}
	return target, nil
}

func runGit(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// gitCommit is the checked-out HEAD, "unknown" when dir is not a repository.
func gitCommit(ctx context.Context, dir string) string {
	out, err := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "HEAD").Output()
	if err != nil {
		return unknownCommit
	}
	return strings.TrimSpace(string(out))
}
