// Package artifact names and writes failure diagnostics: the page source
// and a screenshot of the browser at the moment a scenario failed.
package artifact

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// TimestampLayout is yyyyMMdd_HHmmss.
const TimestampLayout = "20060102_150405"

const (
	sourceSuffix     = "_source.html"
	screenshotSuffix = "_screenshot.png"
)

// Identifier turns a free-form title into a filesystem-safe PascalCase
// identifier: "user logs in (happy path)" becomes "UserLogsInHappyPath".
func Identifier(title string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range title {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upperNext = true
			continue
		}
		if r > unicode.MaxASCII {
			// Keep names portable across filesystems and URLs.
			upperNext = true
			continue
		}
		if upperNext {
			r = unicode.ToUpper(r)
			upperNext = false
		}
		b.WriteRune(r)
	}
	id := b.String()
	if id == "" {
		return "_"
	}
	if unicode.IsDigit(rune(id[0])) {
		return "_" + id
	}
	return id
}

// BaseName composes error_{feature}_{scenario}_{timestamp}.
func BaseName(feature, scenario string, at time.Time) string {
	return fmt.Sprintf("error_%s_%s_%s", Identifier(feature), Identifier(scenario), at.Format(TimestampLayout))
}

// Mirror receives a copy of every written artifact.
type Mirror interface {
	PutObject(ctx context.Context, key string, content []byte, contentType string) error
	ObjectURL(key string) string
}

// Store writes artifacts into one results directory. Files accumulate;
// nothing here deletes them.
type Store struct {
	dir    string
	mirror Mirror
	prefix string
}

// NewStore returns a store rooted at dir. A relative dir is resolved
// against the working directory when Prepare runs.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// WithMirror also uploads artifacts to m under prefix.
func (s *Store) WithMirror(m Mirror, prefix string) *Store {
	s.mirror = m
	s.prefix = strings.Trim(prefix, "/")
	return s
}

// Dir returns the results directory as configured.
func (s *Store) Dir() string {
	return s.dir
}

// Prepare creates the results directory if it does not exist.
func (s *Store) Prepare() error {
	abs, err := filepath.Abs(s.dir)
	if err != nil {
		return fmt.Errorf("resolve results dir %s: %w", s.dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("create results dir %s: %w", abs, err)
	}
	s.dir = abs
	return nil
}

// WriteSource writes the page source as UTF-8 to {base}_source.html.
func (s *Store) WriteSource(ctx context.Context, base, html string) (string, error) {
	return s.write(ctx, base+sourceSuffix, []byte(strings.ToValidUTF8(html, "\uFFFD")), "text/html; charset=utf-8")
}

// WriteScreenshot writes PNG bytes to {base}_screenshot.png.
func (s *Store) WriteScreenshot(ctx context.Context, base string, png []byte) (string, error) {
	return s.write(ctx, base+screenshotSuffix, png, "image/png")
}

// write stores the file locally first. A mirror failure is returned
// together with the local path, which is still valid.
func (s *Store) write(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	p := filepath.Join(s.dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	if s.mirror == nil {
		return p, nil
	}
	key := path.Join(s.prefix, name)
	if err := s.mirror.PutObject(ctx, key, data, contentType); err != nil {
		return p, fmt.Errorf("mirror %s: %w", s.mirror.ObjectURL(key), err)
	}
	return p, nil
}

// MirrorURL returns where an artifact file was mirrored, or "" without a mirror.
func (s *Store) MirrorURL(localPath string) string {
	if s.mirror == nil {
		return ""
	}
	return s.mirror.ObjectURL(path.Join(s.prefix, filepath.Base(localPath)))
}

// FileURL renders a local path as a file:// URL for log output.
func FileURL(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}
