// Package pathresolve implements C1: mapping logical NAS paths stored
// in the catalog to concrete, locally accessible paths.
package pathresolve

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Resolver maps logical paths to accessible paths and enumerates
// candidate staging roots. It is stateless beyond its configuration.
// Resolve, RewriteForWrite and StageRoots have no side effects apart
// from logging; FirstWritableStageRoot creates directories.
type Resolver struct {
	shareMountPrefix  string
	devFallbackPrefix string
	stageRoots        []string
	log               zerolog.Logger
}

func New(shareMountPrefix, devFallbackPrefix string, stageRootCandidates []string, log zerolog.Logger) *Resolver {
	return &Resolver{
		shareMountPrefix:  shareMountPrefix,
		devFallbackPrefix: devFallbackPrefix,
		stageRoots:        stageRootCandidates,
		log:               log,
	}
}

// Resolve returns the first candidate path that exists locally, or
// ("", false) if none do. It never returns an error: an unresolved
// path is a business condition for the caller, not a failure.
func (r *Resolver) Resolve(logicalPath string) (string, bool) {
	candidates := r.candidates(logicalPath)
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err == nil {
			r.log.Debug().Str("logical_path", logicalPath).Str("resolved", c).Msg("path resolved")
			return c, true
		}
	}
	r.log.Debug().Str("logical_path", logicalPath).Msg("path unresolved")
	return "", false
}

func (r *Resolver) candidates(logicalPath string) []string {
	candidates := []string{logicalPath}

	if r.shareMountPrefix != "" {
		candidates = append(candidates, rewritePrefix(logicalPath, r.shareMountPrefix))
	}
	if r.devFallbackPrefix != "" {
		candidates = append(candidates, rewritePrefix(logicalPath, r.devFallbackPrefix))
	}
	return candidates
}

// rewritePrefix rebases logicalPath under prefix, keeping only its
// immediate parent directory and basename ({prefix}/{parent}/{base});
// any directories above the parent are dropped.
func rewritePrefix(logicalPath, prefix string) string {
	base := filepath.Base(logicalPath)
	dir := filepath.Dir(logicalPath)
	// Keep the last path segment of dir (e.g. the library folder name)
	// so sibling libraries don't collide under the same prefix.
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Join(prefix, base)
	}
	return filepath.Join(prefix, parent, base)
}

// RewriteForWrite returns the preferred absolute form of logicalPath
// for a caller that intends to create it (e.g. restoring a staged
// file to its original location), without requiring it to already
// exist. It prefers the share-mount rewrite, then the dev-fallback
// rewrite, then the logical path verbatim.
func (r *Resolver) RewriteForWrite(logicalPath string) string {
	if r.shareMountPrefix != "" {
		return rewritePrefix(logicalPath, r.shareMountPrefix)
	}
	if r.devFallbackPrefix != "" {
		return rewritePrefix(logicalPath, r.devFallbackPrefix)
	}
	return logicalPath
}

// StageRoots returns the ordered list of candidate holding directories;
// the caller probes each for writability.
func (r *Resolver) StageRoots() []string {
	out := make([]string, len(r.stageRoots))
	copy(out, r.stageRoots)
	return out
}

// FirstWritableStageRoot returns relDir joined onto the first stage
// root under which that directory can be created (creating it), or
// ("", false) if none succeed.
func (r *Resolver) FirstWritableStageRoot(relDir string) (string, bool) {
	for _, root := range r.stageRoots {
		full := filepath.Join(root, relDir)
		if err := os.MkdirAll(full, 0o755); err == nil {
			return full, true
		}
	}
	return "", false
}

// IsDenied reports whether name (a single path segment) matches the
// configured deny-list, case-insensitively.
func IsDenied(name string, denyList []string) bool {
	for _, d := range denyList {
		if strings.EqualFold(name, d) {
			return true
		}
	}
	return false
}
