package sender

import (
	"fmt"

	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/rsyncopts"
	"github.com/boob-sbcm/rsynk/internal/rsyncwire"
)

// maxShortLength is the largest name length sent in a single byte.
// Common prefixes are capped at this length, too.
const maxShortLength = 127

// encodeCache holds what the client has already been told in the current
// file list: the attributes of the previous entry and the user and group
// names sent so far.
type encodeCache struct {
	hasMode bool
	mode    uint32

	hasUser bool
	user    User

	hasGroup bool
	group    Group

	hasModTime bool
	modTime    int64

	lastName []byte

	sentUserNames  map[int32]bool
	sentGroupNames map[int32]bool
}

func newEncodeCache() encodeCache {
	return encodeCache{
		sentUserNames:  make(map[int32]bool),
		sentGroupNames: make(map[int32]bool),
	}
}

// A FileListEncoder encodes the file list of one session. It must not be
// shared between sessions.
type FileListEncoder struct {
	opts  *rsyncopts.Options
	cache encodeCache
	buf   rsyncwire.Buffer

	// users and groups whose names are sent after the file list, in the
	// order in which they were first encountered.
	users    []User
	groups   []Group
	idListed map[idKey]bool
}

type idKey struct {
	group bool
	id    int32
}

func NewFileListEncoder(opts *rsyncopts.Options) *FileListEncoder {
	return &FileListEncoder{opts: opts}
}

// checkEntry fails for entries whose extra fields (device numbers, symlink
// targets) would have to be transmitted.
func (e *FileListEncoder) checkEntry(f *FileInfo) error {
	switch f.Type {
	case BlockDevice, CharDevice:
		if e.opts.PreserveDevices() {
			return fmt.Errorf("%w: sending %s %q (device numbers are not implemented)", rsynk.ErrUnsupportedFeature, f.Type, f.Path)
		}
	case FIFO, Socket:
		if e.opts.PreserveSpecials() {
			return fmt.Errorf("%w: sending %s %q (special files are not implemented)", rsynk.ErrUnsupportedFeature, f.Type, f.Path)
		}
	case Symlink:
		if e.opts.PreserveLinks() {
			return fmt.Errorf("%w: sending %s %q (symlink targets are not implemented)", rsynk.ErrUnsupportedFeature, f.Type, f.Path)
		}
	}
	return nil
}

// Encode writes one file list record per entry, in the given order. All
// entries are checked before the first byte is written.
//
// rsync/flist.c:send_file_entry
func (e *FileListEncoder) Encode(c *rsyncwire.Conn, entries []FileInfo) error {
	for i := range entries {
		if err := e.checkEntry(&entries[i]); err != nil {
			return err
		}
	}

	e.cache = newEncodeCache()
	e.users = nil
	e.groups = nil
	e.idListed = make(map[idKey]bool)
	for i := range entries {
		e.buf.Reset()
		e.encodeEntry(&entries[i])
		if err := c.WriteBuffer(&e.buf); err != nil {
			return streamError(err)
		}
	}
	return nil
}

func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// noteID records a user (group=false) or group id for the id lists sent
// after the file list.
func (e *FileListEncoder) noteID(group bool, id int32, name string) {
	key := idKey{group: group, id: id}
	if e.idListed[key] {
		return
	}
	e.idListed[key] = true
	if group {
		e.groups = append(e.groups, Group{ID: id, Name: name})
	} else {
		e.users = append(e.users, User{ID: id, Name: name})
	}
}

func (e *FileListEncoder) encodeEntry(f *FileInfo) {
	opts := e.opts // for convenience
	cache := &e.cache

	var flags rsynk.TransmitFlags
	if f.IsDir() {
		flags |= rsynk.XMIT_TOP_DIR
	}

	if cache.hasMode && f.Mode == cache.mode {
		flags |= rsynk.XMIT_SAME_MODE
	} else {
		cache.hasMode = true
		cache.mode = f.Mode
	}

	if opts.PreserveUid() {
		if cache.hasUser && f.User.ID == cache.user.ID {
			flags |= rsynk.XMIT_SAME_UID
		} else {
			cache.hasUser = true
			cache.user = f.User
			if !f.User.IsRoot() && !opts.NumericIds() {
				if opts.Recurse() {
					if !cache.sentUserNames[f.User.ID] {
						flags |= rsynk.XMIT_USER_NAME_FOLLOWS
						cache.sentUserNames[f.User.ID] = true
					}
				} else {
					e.noteID(false, f.User.ID, f.User.Name)
				}
			}
		}
	}

	if opts.PreserveGid() {
		if cache.hasGroup && f.Group.ID == cache.group.ID {
			flags |= rsynk.XMIT_SAME_GID
		} else {
			cache.hasGroup = true
			cache.group = f.Group
			if !f.Group.IsRoot() && !opts.NumericIds() {
				if opts.Recurse() {
					if !cache.sentGroupNames[f.Group.ID] {
						flags |= rsynk.XMIT_GROUP_NAME_FOLLOWS
						cache.sentGroupNames[f.Group.ID] = true
					}
				} else {
					e.noteID(true, f.Group.ID, f.Group.Name)
				}
			}
		}
	}

	if cache.hasModTime && f.ModTime == cache.modTime {
		flags |= rsynk.XMIT_SAME_TIME
	} else {
		cache.hasModTime = true
		cache.modTime = f.ModTime
	}

	name := []byte(f.Path)
	prefix := min(commonPrefixLen(name, cache.lastName), maxShortLength)
	if prefix > 0 {
		flags |= rsynk.XMIT_SAME_NAME
	}
	suffix := name[prefix:]
	if len(suffix) > maxShortLength {
		flags |= rsynk.XMIT_LONG_NAME
	}
	cache.lastName = name

	if flags == 0 && !f.IsDir() {
		flags |= rsynk.XMIT_TOP_DIR
	}

	// 1.   status (byte, or 16 bit if XMIT_EXTENDED_FLAGS)
	if flags.Extended() {
		flags |= rsynk.XMIT_EXTENDED_FLAGS
		e.buf.WriteInt16(uint16(flags))
	} else {
		e.buf.WriteByte(byte(flags))
	}

	// 2.   inherited filename length (optional, byte)
	if flags.Has(rsynk.XMIT_SAME_NAME) {
		e.buf.WriteByte(byte(prefix))
	}

	// 3.   filename length (varint or byte)
	if flags.Has(rsynk.XMIT_LONG_NAME) {
		e.buf.WriteVarint(int32(len(suffix)))
	} else {
		e.buf.WriteByte(byte(len(suffix)))
	}

	// 4.   file name suffix (byte array)
	e.buf.WriteString(string(suffix))

	// 5.   file length (varlong, at least 3 bytes)
	e.buf.WriteVarlong(f.Size, 3)

	// 6.   file modification time (optional, varlong, at least 4 bytes)
	if !flags.Has(rsynk.XMIT_SAME_TIME) {
		e.buf.WriteVarlong(f.ModTime, 4)
	}

	// 7.   file mode (optional, 32 bit)
	if !flags.Has(rsynk.XMIT_SAME_MODE) {
		e.buf.WriteInt32(int32(f.Mode))
	}

	// 8.   if -o, the user id (varint) and possibly its name
	if opts.PreserveUid() && !flags.Has(rsynk.XMIT_SAME_UID) {
		e.buf.WriteVarint(f.User.ID)
		if flags.Has(rsynk.XMIT_USER_NAME_FOLLOWS) {
			e.writeName(f.User.Name)
		}
	}

	// 9.   if -g, the group id (varint) and possibly its name
	if opts.PreserveGid() && !flags.Has(rsynk.XMIT_SAME_GID) {
		e.buf.WriteVarint(f.Group.ID)
		if flags.Has(rsynk.XMIT_GROUP_NAME_FOLLOWS) {
			e.writeName(f.Group.Name)
		}
	}
}

// writeName writes a user or group name with a one byte length prefix.
func (e *FileListEncoder) writeName(name string) {
	if len(name) > 255 {
		name = name[:255]
	}
	e.buf.WriteByte(byte(len(name)))
	e.buf.WriteString(name)
}

// Finish terminates the file list. Unless names were sent inline (recursive
// mode) or --numeric-ids is in effect, the user and group id lists follow.
//
// rsync/flist.c:send_file_list, rsync/uidlist.c:send_id_lists
func (e *FileListEncoder) Finish(c *rsyncwire.Conn) error {
	e.buf.Reset()

	const endOfFileList = 0
	e.buf.WriteByte(endOfFileList)

	if !e.opts.Recurse() && !e.opts.NumericIds() {
		const endOfSet = 0
		if e.opts.PreserveUid() {
			for _, u := range e.users {
				if u.Name == "" {
					continue
				}
				e.buf.WriteVarint(u.ID)
				e.writeName(u.Name)
			}
			e.buf.WriteVarint(endOfSet)
		}
		if e.opts.PreserveGid() {
			for _, g := range e.groups {
				if g.Name == "" {
					continue
				}
				e.buf.WriteVarint(g.ID)
				e.writeName(g.Name)
			}
			e.buf.WriteVarint(endOfSet)
		}
	}

	if err := c.WriteBuffer(&e.buf); err != nil {
		return streamError(err)
	}
	return nil
}
