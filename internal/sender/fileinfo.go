package sender

import "github.com/boob-sbcm/rsynk"

type FileType int

const (
	Regular FileType = iota
	Directory
	Symlink
	BlockDevice
	CharDevice
	FIFO
	Socket
)

func (t FileType) String() string {
	switch t {
	case Regular:
		return "regular file"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	case BlockDevice:
		return "block device"
	case CharDevice:
		return "character device"
	case FIFO:
		return "fifo"
	case Socket:
		return "socket"
	}
	return "unknown file type"
}

// modeBits returns the S_IF* bits for t.
func (t FileType) modeBits() uint32 {
	switch t {
	case Directory:
		return rsynk.S_IFDIR
	case Symlink:
		return rsynk.S_IFLNK
	case BlockDevice:
		return rsynk.S_IFBLK
	case CharDevice:
		return rsynk.S_IFCHR
	case FIFO:
		return rsynk.S_IFIFO
	case Socket:
		return rsynk.S_IFSOCK
	}
	return rsynk.S_IFREG
}

// User is a file owner. Users are equal if their ids are equal.
type User struct {
	ID   int32
	Name string
}

// IsRoot reports whether u is the super user, whose name is never
// transmitted.
func (u User) IsRoot() bool { return u.ID == 0 }

// Group is a file's group. Groups are equal if their ids are equal.
type Group struct {
	ID   int32
	Name string
}

func (g Group) IsRoot() bool { return g.ID == 0 }

// FileInfo describes one file list entry.
type FileInfo struct {
	// Path is the name under which the file is transmitted, relative to the
	// transfer root.
	Path string
	Size int64
	// Mode holds the permission bits and the S_IF* file type bits.
	Mode    uint32
	ModTime int64 // seconds since the epoch
	User    User
	Group   Group
	Type    FileType
}

func (f *FileInfo) IsDir() bool { return f.Type == Directory }
