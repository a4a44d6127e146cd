// Package rsyncopts parses the command line which an rsync client sends to
// the remote end, e.g. "rsync --server --sender -logDtpre.iLsfxCIvu . dir".
package rsyncopts

import (
	"slices"
	"strconv"
)

// Option is one recognized rsync command line option.
type Option int

const (
	Server Option = iota + 1
	Sender
	Daemon
	ChecksumSeedOrderFix
	FListIOErrorSafety
	PreserveGroup
	SymlinkTimeSetting
	PreserveLinks
	PruneEmptyDirectories
	PreserveUser
	RelativePaths
	ProtectArgs
	VerboseMode
	OneFileSystem
	PreserveXattrs
	Compress
	PreserveDevices
	PreserveSpecials
	NumericIds
	Recurse
	TransferDirectoriesWithoutContent
	PreserveTimes
	PreservePerms
	IgnoreTimes
	UpdateOnly
	DryRun
	ItemizeChanges
)

var optionNames = map[Option]string{
	Server:                            "Server",
	Sender:                            "Sender",
	Daemon:                            "Daemon",
	ChecksumSeedOrderFix:              "ChecksumSeedOrderFix",
	FListIOErrorSafety:                "FListIOErrorSafety",
	PreserveGroup:                     "PreserveGroup",
	SymlinkTimeSetting:                "SymlinkTimeSetting",
	PreserveLinks:                     "PreserveLinks",
	PruneEmptyDirectories:             "PruneEmptyDirectories",
	PreserveUser:                      "PreserveUser",
	RelativePaths:                     "RelativePaths",
	ProtectArgs:                       "ProtectArgs",
	VerboseMode:                       "VerboseMode",
	OneFileSystem:                     "OneFileSystem",
	PreserveXattrs:                    "PreserveXattrs",
	Compress:                          "Compress",
	PreserveDevices:                   "PreserveDevices",
	PreserveSpecials:                  "PreserveSpecials",
	NumericIds:                        "NumericIds",
	Recurse:                           "Recurse",
	TransferDirectoriesWithoutContent: "TransferDirectoriesWithoutContent",
	PreserveTimes:                     "PreserveTimes",
	PreservePerms:                     "PreservePerms",
	IgnoreTimes:                       "IgnoreTimes",
	UpdateOnly:                        "UpdateOnly",
	DryRun:                            "DryRun",
	ItemizeChanges:                    "ItemizeChanges",
}

func (o Option) String() string {
	if name, ok := optionNames[o]; ok {
		return name
	}
	return "Option(" + strconv.Itoa(int(o)) + ")"
}

// FileSelection is how directories are treated. The mutually exclusive
// command line options collapse into exactly one FileSelection.
type FileSelection int

const (
	// NoDirectories skips directories (the rsync default).
	NoDirectories FileSelection = iota
	// DirectoriesWithoutContent sends directory entries, but not
	// their contents (-d).
	DirectoriesWithoutContent
	// RecurseDirectories sends directories and their contents (-r).
	RecurseDirectories
)

func (fs FileSelection) String() string {
	switch fs {
	case NoDirectories:
		return "NoDirectories"
	case DirectoriesWithoutContent:
		return "TransferDirectoriesWithoutContent"
	case RecurseDirectories:
		return "Recurse"
	}
	return "FileSelection(" + strconv.Itoa(int(fs)) + ")"
}

// Options is the immutable set of options of one request.
type Options struct {
	set            map[Option]bool
	preReleaseInfo string
}

func newOptions(set map[Option]bool, preReleaseInfo string) *Options {
	return &Options{
		set:            set,
		preReleaseInfo: preReleaseInfo,
	}
}

// NewOptions returns an option set consisting of opts, as if they were
// specified on the command line.
func NewOptions(opts ...Option) *Options {
	set := make(map[Option]bool)
	for _, opt := range opts {
		set[opt] = true
	}
	return newOptions(set, "")
}

func (o *Options) Has(opt Option) bool { return o.set[opt] }

// List returns the set options in ascending order.
func (o *Options) List() []Option {
	list := make([]Option, 0, len(o.set))
	for opt := range o.set {
		list = append(list, opt)
	}
	slices.Sort(list)
	return list
}

// PreReleaseInfo returns the pre-release marker the client embedded into
// its short options (e.g. "31.100" for -e31.100), if any.
func (o *Options) PreReleaseInfo() string { return o.preReleaseInfo }

func (o *Options) FileSelection() FileSelection {
	switch {
	case o.set[Recurse]:
		return RecurseDirectories
	case o.set[TransferDirectoriesWithoutContent]:
		return DirectoriesWithoutContent
	default:
		return NoDirectories
	}
}

func (o *Options) Server() bool           { return o.set[Server] }
func (o *Options) Sender() bool           { return o.set[Sender] }
func (o *Options) Daemon() bool           { return o.set[Daemon] }
func (o *Options) Recurse() bool          { return o.FileSelection() == RecurseDirectories }
func (o *Options) Verbose() bool          { return o.set[VerboseMode] }
func (o *Options) PreserveUid() bool      { return o.set[PreserveUser] }
func (o *Options) PreserveGid() bool      { return o.set[PreserveGroup] }
func (o *Options) PreserveLinks() bool    { return o.set[PreserveLinks] }
func (o *Options) PreserveDevices() bool  { return o.set[PreserveDevices] }
func (o *Options) PreserveSpecials() bool { return o.set[PreserveSpecials] }
func (o *Options) NumericIds() bool       { return o.set[NumericIds] }
