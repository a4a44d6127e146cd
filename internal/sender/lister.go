package sender

import (
	"errors"
	"fmt"
	"io/fs"
	"os/user"
	"path"
	"strconv"
	"strings"

	"github.com/boob-sbcm/rsynk/internal/rsyncopts"
)

// transferRoot maps the path requested by the client to the directory to
// walk within the FileSource and the prefix under which its entries are
// transmitted. A trailing slash transfers the contents of a directory
// instead of the directory itself, just like with rsync.
func transferRoot(requested string) (root, prefix string) {
	root = strings.TrimPrefix(path.Clean("/"+requested), "/")
	if root == "" {
		root = "."
	}
	if root == "." || strings.HasSuffix(requested, "/") {
		return root, ""
	}
	return root, path.Base(root)
}

func fileType(mode fs.FileMode) FileType {
	switch {
	case mode.IsDir():
		return Directory
	case mode&fs.ModeSymlink != 0:
		return Symlink
	case mode&fs.ModeCharDevice != 0:
		return CharDevice
	case mode&fs.ModeDevice != 0:
		return BlockDevice
	case mode&fs.ModeNamedPipe != 0:
		return FIFO
	case mode&fs.ModeSocket != 0:
		return Socket
	}
	return Regular
}

// unixMode converts mode to the POSIX mode bits sent over the wire.
func unixMode(mode fs.FileMode, typ FileType) uint32 {
	m := uint32(mode.Perm()) | typ.modeBits()
	if mode&fs.ModeSetuid != 0 {
		m |= 0o4000
	}
	if mode&fs.ModeSetgid != 0 {
		m |= 0o2000
	}
	if mode&fs.ModeSticky != 0 {
		m |= 0o1000
	}
	return m
}

// lister builds the entries of a file list from a FileSource.
type lister struct {
	st     *Transfer
	prefix string
	root   string

	entries  []FileInfo
	ioErrors int

	userNames   map[int32]string
	groupNames  map[int32]string
	lookupErred bool
}

// skip reports whether an entry of type typ is left out of the file list
// because the client did not ask for its kind.
func (l *lister) skip(typ FileType) bool {
	opts := l.st.Opts // for convenience
	switch typ {
	case Symlink:
		return !opts.PreserveLinks()
	case BlockDevice, CharDevice:
		return !opts.PreserveDevices()
	case FIFO, Socket:
		return !opts.PreserveSpecials()
	}
	return false
}

func (l *lister) userName(uid int32) string {
	if name, ok := l.userNames[uid]; ok {
		return name
	}
	var name string
	u, err := user.LookupId(strconv.Itoa(int(uid)))
	if err != nil {
		if !l.lookupErred {
			l.st.Logger.Printf("lookup(%d) = %v", uid, err)
			l.lookupErred = true
		}
	} else {
		name = u.Username
	}
	l.userNames[uid] = name
	return name
}

func (l *lister) groupName(gid int32) string {
	if name, ok := l.groupNames[gid]; ok {
		return name
	}
	var name string
	g, err := user.LookupGroupId(strconv.Itoa(int(gid)))
	if err != nil {
		if !l.lookupErred {
			l.st.Logger.Printf("lookupgroup(%d) = %v", gid, err)
			l.lookupErred = true
		}
	} else {
		name = g.Name
	}
	l.groupNames[gid] = name
	return name
}

func (l *lister) name(p string) string {
	if p == l.root {
		if l.prefix == "" {
			return "."
		}
		return l.prefix
	}
	rel := p
	if l.root != "." {
		rel = strings.TrimPrefix(p, l.root+"/")
	}
	if l.prefix == "" {
		return rel
	}
	return l.prefix + "/" + rel
}

func (l *lister) walkFn(p string, d fs.DirEntry, err error) error {
	logger := l.st.Logger // for convenience
	opts := l.st.Opts     // for convenience

	var info fs.FileInfo
	if err == nil {
		info, err = d.Info()
	}
	if err != nil {
		if p == l.root {
			return err
		}
		// Remember the error, but keep walking.
		if errors.Is(err, fs.ErrNotExist) {
			logger.Printf("file vanished: %v", err)
		} else {
			logger.Printf("lstat: %v", err)
		}
		l.ioErrors++
		return nil
	}

	typ := fileType(info.Mode())
	if typ == Directory && opts.FileSelection() == rsyncopts.NoDirectories {
		logger.Printf("skipping directory %s", l.name(p))
		return fs.SkipDir
	}
	if l.skip(typ) {
		logger.Printf("skipping non-regular file %q", l.name(p))
		return nil
	}

	f := FileInfo{
		Path:    l.name(p),
		Size:    info.Size(),
		Mode:    unixMode(info.Mode(), typ),
		ModTime: info.ModTime().Unix(),
		Type:    typ,
	}
	if opts.PreserveUid() {
		if uid, ok := uidFromFileInfo(info); ok {
			f.User.ID = uid
			if uid != 0 && !opts.NumericIds() {
				f.User.Name = l.userName(uid)
			}
		}
	}
	if opts.PreserveGid() {
		if gid, ok := gidFromFileInfo(info); ok {
			f.Group.ID = gid
			if gid != 0 && !opts.NumericIds() {
				f.Group.Name = l.groupName(gid)
			}
		}
	}
	l.entries = append(l.entries, f)
	return nil
}

// ListFiles returns the file list entries for the requested path, in the
// order in which they are transmitted.
//
// rsync/flist.c:send_file_list
func (st *Transfer) ListFiles(requested string) ([]FileInfo, error) {
	root, prefix := transferRoot(requested)
	l := &lister{
		st:         st,
		root:       root,
		prefix:     prefix,
		userNames:  make(map[int32]string),
		groupNames: make(map[int32]string),
	}
	if st.Opts.Verbose() {
		st.Logger.Printf("building file list for %q (root %q, prefix %q)", requested, root, prefix)
	}
	if err := fs.WalkDir(st.Source.FS(), root, l.walkFn); err != nil {
		return nil, fmt.Errorf("building file list: %w", err)
	}
	if l.ioErrors > 0 {
		st.Logger.Printf("%d I/O errors while building the file list", l.ioErrors)
	}
	return l.entries, nil
}
