package rsynk

import "strings"

// TransmitFlags is the per-entry status bitmask of the file list. Each bit
// signals which of the optional fields of a file list entry are transmitted.
type TransmitFlags uint16

// rsync.h
const (
	XMIT_TOP_DIR            TransmitFlags = (1 << 0)
	XMIT_SAME_MODE          TransmitFlags = (1 << 1)
	XMIT_EXTENDED_FLAGS     TransmitFlags = (1 << 2)
	XMIT_SAME_UID           TransmitFlags = (1 << 3)
	XMIT_SAME_GID           TransmitFlags = (1 << 4)
	XMIT_SAME_NAME          TransmitFlags = (1 << 5)
	XMIT_LONG_NAME          TransmitFlags = (1 << 6)
	XMIT_SAME_TIME          TransmitFlags = (1 << 7)
	XMIT_SAME_RDEV_MAJOR    TransmitFlags = (1 << 8)
	XMIT_NO_CONTENT_DIR     TransmitFlags = (1 << 8) /* directories only */
	XMIT_HLINKED            TransmitFlags = (1 << 9)
	XMIT_USER_NAME_FOLLOWS  TransmitFlags = (1 << 10)
	XMIT_GROUP_NAME_FOLLOWS TransmitFlags = (1 << 11)
	XMIT_HLINK_FIRST        TransmitFlags = (1 << 12)
	XMIT_IO_ERROR_ENDLIST   TransmitFlags = (1 << 12) /* end of list only */
	XMIT_MOD_NSEC           TransmitFlags = (1 << 13)
)

// Has reports whether all bits of bit are set in f.
func (f TransmitFlags) Has(bit TransmitFlags) bool { return f&bit == bit }

// Extended reports whether f needs the two-byte representation on the wire.
func (f TransmitFlags) Extended() bool { return f == 0 || f&0xFF00 != 0 }

// CompatFlags is the capability bitmask exchanged right after the protocol
// version.
type CompatFlags uint8

// compat.c
const (
	CF_INC_RECURSE         CompatFlags = (1 << 0)
	CF_SYMLINK_TIMES       CompatFlags = (1 << 1)
	CF_SYMLINK_ICONV       CompatFlags = (1 << 2)
	CF_SAFE_FLIST          CompatFlags = (1 << 3)
	CF_AVOID_XATTR_OPTIM   CompatFlags = (1 << 4)
	CF_CHKSUM_SEED_FIX     CompatFlags = (1 << 5)
	CF_INPLACE_PARTIAL_DIR CompatFlags = (1 << 6)
	CF_VARINT_FLIST_FLAGS  CompatFlags = (1 << 7)
)

var compatFlagNames = []struct {
	flag CompatFlags
	name string
}{
	{CF_INC_RECURSE, "inc_recurse"},
	{CF_SYMLINK_TIMES, "symlink_times"},
	{CF_SYMLINK_ICONV, "symlink_iconv"},
	{CF_SAFE_FLIST, "safe_flist"},
	{CF_AVOID_XATTR_OPTIM, "avoid_xattr_optim"},
	{CF_CHKSUM_SEED_FIX, "chksum_seed_fix"},
	{CF_INPLACE_PARTIAL_DIR, "inplace_partial_dir"},
	{CF_VARINT_FLIST_FLAGS, "varint_flist_flags"},
}

// Has reports whether all bits of flag are set in f.
func (f CompatFlags) Has(flag CompatFlags) bool { return f&flag == flag }

// Names returns the names of the bits set in f, in bit order.
func (f CompatFlags) Names() []string {
	var names []string
	for _, cf := range compatFlagNames {
		if f.Has(cf.flag) {
			names = append(names, cf.name)
		}
	}
	return names
}

func (f CompatFlags) String() string {
	return "[" + strings.Join(f.Names(), " ") + "]"
}

// CompatFlagByName looks up a compatibility flag by its configuration name,
// e.g. "safe_flist".
func CompatFlagByName(name string) (CompatFlags, bool) {
	for _, cf := range compatFlagNames {
		if cf.name == name {
			return cf.flag, true
		}
	}
	return 0, false
}

// as per /usr/include/bits/stat.h:
const (
	S_IFMT   = 0o0170000 // bits determining the file type
	S_IFDIR  = 0o0040000 // Directory
	S_IFCHR  = 0o0020000 // Character device
	S_IFBLK  = 0o0060000 // Block device
	S_IFREG  = 0o0100000 // Regular file
	S_IFIFO  = 0o0010000 // FIFO
	S_IFLNK  = 0o0120000 // Symbolic link
	S_IFSOCK = 0o0140000 // Socket
)

// The protocol versions this server speaks. Version 30 is the first one
// using varint-encoded sizes and timestamps in the file list.
const (
	ProtocolVersion    = 31
	MinProtocolVersion = 30
	MaxProtocolVersion = 31
)

// DefaultCompatFlags is the compatibility flag set the server advertises
// unless configured otherwise.
const DefaultCompatFlags = CF_SAFE_FLIST | CF_CHKSUM_SEED_FIX
