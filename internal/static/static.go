// Package static resolves request paths to files under a fixed root directory
// and opens them for streaming.
package static

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of a file is read before the response is committed.
const sniffLen = 512

var (
	// ErrOutsideRoot means the cleaned path escapes the root directory.
	ErrOutsideRoot = errors.New("path outside root")
	// ErrNotFound means nothing exists at the resolved path.
	ErrNotFound = errors.New("resource missing")
	// ErrNotRegular means the path exists but is not a regular file.
	ErrNotRegular = errors.New("not a regular file")
	// ErrUnreadable means the file exists but could not be opened or read.
	ErrUnreadable = errors.New("file not readable")
)

// Resolver maps URL paths onto files below Root.
type Resolver struct {
	root string
}

// NewResolver creates a Resolver for root, which is made absolute.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static root %s: %w", root, err)
	}
	return &Resolver{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve converts a URL path to a filesystem path and checks that the result
// is the root itself or lies below it.
func (r *Resolver) Resolve(requestPath string) (string, error) {
	if strings.ContainsRune(requestPath, 0) || strings.Contains(requestPath, "\\") {
		return "", ErrOutsideRoot
	}

	// Joining the raw path, not a pre-cleaned one, keeps ".." visible to the check below.
	resolved := filepath.Join(r.root, filepath.FromSlash(requestPath))
	if resolved != r.root && !strings.HasPrefix(resolved, r.prefix()) {
		return "", ErrOutsideRoot
	}
	return resolved, nil
}

// prefix is the root with exactly one trailing separator. A filesystem root
// such as "/" already ends with one.
func (r *Resolver) prefix() string {
	if strings.HasSuffix(r.root, string(filepath.Separator)) {
		return r.root
	}
	return r.root + string(filepath.Separator)
}

// File is an opened static file ready to stream.
type File struct {
	Path        string
	Size        int64
	ContentType string

	file   *os.File
	reader *bufio.Reader
}

// Read implements io.Reader. The first bytes were already buffered by Open.
func (f *File) Read(p []byte) (int, error) {
	return f.reader.Read(p)
}

// Close releases the file descriptor.
func (f *File) Close() error {
	return f.file.Close()
}

// Open resolves requestPath and opens the file. The first chunk is read
// eagerly so read errors surface before any response is written.
func (r *Resolver) Open(requestPath string) (*File, error) {
	resolved, err := r.Resolve(requestPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, requestPath)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, requestPath)
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, requestPath, err)
	}

	reader := bufio.NewReaderSize(file, sniffLen)
	head, err := reader.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, requestPath, err)
	}

	return &File{
		Path:        resolved,
		Size:        info.Size(),
		ContentType: contentType(resolved, head),
		file:        file,
		reader:      reader,
	}, nil
}

// contentType prefers the extension and falls back to sniffing the content.
func contentType(name string, head []byte) string {
	if ext := path.Ext(filepath.ToSlash(name)); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return mimetype.Detect(head).String()
}
