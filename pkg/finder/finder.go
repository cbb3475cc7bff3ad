// Package finder locates markup documents and catalog files on an afero
// filesystem.
package finder

import (
	"context"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// DefaultExtensions are the markup files searched when a directory is named.
var DefaultExtensions = []string{".aspx", ".ascx", ".master"}

// FileInfo is a found document.
type FileInfo struct {
	Path     string
	Content  []byte
	FileType string
}

type Finder struct {
	fs afero.Fs
}

func New(fs afero.Fs) *Finder {
	return &Finder{fs: fs}
}

// Glob matches a doublestar pattern. Absolute patterns are matched from the
// filesystem root and return absolute paths.
func Glob(fsys afero.Fs, pattern string) ([]string, error) {
	pattern = path.Clean(pattern)
	if !path.IsAbs(pattern) {
		matches, err := doublestar.Glob(afero.NewIOFS(fsys), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("matching %s: %w", pattern, err)
		}
		return matches, nil
	}

	// io/fs paths are unrooted
	root := afero.NewIOFS(afero.NewBasePathFs(fsys, "/"))
	matches, err := doublestar.Glob(root, strings.TrimPrefix(pattern, "/"), doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("matching %s: %w", pattern, err)
	}
	for i, m := range matches {
		matches[i] = "/" + m
	}
	return matches, nil
}

// Find resolves command line arguments to documents. An argument is a file,
// a directory searched recursively for the given extensions, or a doublestar
// pattern. Results are sorted and unique.
func (f *Finder) Find(ctx context.Context, args []string, extensions []string) ([]FileInfo, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	seen := map[string]bool{}
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("finding documents: %w", err)
		}

		if strings.ContainsAny(arg, "*?[{") {
			matches, err := Glob(f.fs, arg)
			if err != nil {
				return nil, err
			}
			if len(matches) == 0 {
				return nil, errors.Errorf("no documents match %q", arg)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}

		info, err := f.fs.Stat(arg)
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		err = afero.Walk(f.fs, arg, func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !info.IsDir() && hasExtension(p, extensions) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Errorf("walking %s: %w", arg, err)
		}
	}

	slices.Sort(paths)

	out := make([]FileInfo, 0, len(paths))
	for _, p := range paths {
		content, err := afero.ReadFile(f.fs, p)
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", p, err)
		}
		out = append(out, FileInfo{Path: p, Content: content, FileType: strings.TrimPrefix(path.Ext(p), ".")})
	}

	zerolog.Ctx(ctx).Debug().Strs("args", args).Int("documents", len(out)).Msg("found documents")

	return out, nil
}

func hasExtension(p string, extensions []string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
