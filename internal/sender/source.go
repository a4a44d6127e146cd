package sender

import (
	"io/fs"
	"os"
)

// FileSource is the interface which the sender uses to discover files. This
// allows serving files from an actual file system (*os.Root) or any fs.FS.
type FileSource interface {
	// FS returns the underlying fs.FS for use with fs.WalkDir.
	FS() fs.FS

	Close() error
}

type osRootSource struct {
	root *os.Root
}

// NewRootSource opens dir as a FileSource. Files outside of dir cannot be
// reached, not even via symlinks.
func NewRootSource(dir string) (FileSource, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	return &osRootSource{root: root}, nil
}

func (s *osRootSource) FS() fs.FS    { return s.root.FS() }
func (s *osRootSource) Close() error { return s.root.Close() }

// fsSource wraps an fs.FS to implement FileSource.
type fsSource struct {
	fsys fs.FS
}

// NewFSSource creates a FileSource from an fs.FS.
func NewFSSource(fsys fs.FS) FileSource {
	return &fsSource{fsys: fsys}
}

func (s *fsSource) FS() fs.FS    { return s.fsys }
func (s *fsSource) Close() error { return nil }
