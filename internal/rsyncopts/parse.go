package rsyncopts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/rsyncchecksum"
)

// ProgramName is the first token of every command line rsync clients send.
const ProgramName = "rsync"

var shortOptions = map[byte][]Option{
	'C': {ChecksumSeedOrderFix},
	'd': {TransferDirectoriesWithoutContent},
	'f': {FListIOErrorSafety},
	'g': {PreserveGroup},
	'L': {SymlinkTimeSetting},
	'l': {PreserveLinks},
	'm': {PruneEmptyDirectories},
	'M': {PruneEmptyDirectories},
	'o': {PreserveUser},
	'r': {Recurse},
	'R': {RelativePaths},
	's': {ProtectArgs},
	'v': {VerboseMode},
	'x': {OneFileSystem},
	'X': {PreserveXattrs},
	'z': {Compress},

	// Sent by stock rsync clients as part of -logDtpre.iLsfxCIvu
	'D': {PreserveDevices, PreserveSpecials},
	't': {PreserveTimes},
	'p': {PreservePerms},
	'i': {ItemizeChanges},
	'I': {IgnoreTimes},
	'u': {UpdateOnly},
	'n': {DryRun},
}

var longOptions = map[string]Option{
	"server":           Server,
	"sender":           Sender,
	"daemon":           Daemon,
	"devices":          PreserveDevices,
	"group":            PreserveGroup,
	"links":            PreserveLinks,
	"numeric-ids":      NumericIds,
	"one-file-system":  OneFileSystem,
	"owner":            PreserveUser,
	"protect-args":     ProtectArgs,
	"prune-empty-dirs": PruneEmptyDirectories,
	"specials":         PreserveSpecials,
	"xattrs":           PreserveXattrs,

	"recursive":       Recurse,
	"dirs":            TransferDirectoriesWithoutContent,
	"verbose":         VerboseMode,
	"compress":        Compress,
	"relative":        RelativePaths,
	"times":           PreserveTimes,
	"perms":           PreservePerms,
	"ignore-times":    IgnoreTimes,
	"update":          UpdateOnly,
	"dry-run":         DryRun,
	"itemize-changes": ItemizeChanges,
}

const checksumSeedPrefix = "checksum-seed="

// preReleaseMarker matches the protocol pre-release marker which rsync
// embeds into the short options, e.g. -e31.100 or -e. (no pre-release).
var preReleaseMarker = regexp.MustCompile(`e\d*\.\d*`)

// Request is a parsed rsync command line.
type Request struct {
	Options *Options
	Files   []string

	// ChecksumSeed is either the value of --checksum-seed, or a freshly
	// generated seed.
	ChecksumSeed int32
}

type state int

const (
	expectProgramName state = iota
	expectOptions
	collectFiles
)

func (s state) String() string {
	switch s {
	case expectProgramName:
		return "ExpectProgramName"
	case expectOptions:
		return "ExpectOptions"
	case collectFiles:
		return "CollectFiles"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

type parser struct {
	set            map[Option]bool
	files          []string
	seed           *int32
	preReleaseInfo string
}

// transitions holds one transition function per parser state. Each consumes
// one token and returns the state for the next token.
var transitions = [...]func(p *parser, arg string) (state, error){
	expectProgramName: (*parser).expectProgramName,
	expectOptions:     (*parser).expectOptions,
	collectFiles:      (*parser).collectFiles,
}

func argError(format string, a ...any) error {
	return fmt.Errorf("%w: %s", rsynk.ErrArgumentParse, fmt.Sprintf(format, a...))
}

func (p *parser) expectProgramName(arg string) (state, error) {
	if arg != ProgramName {
		return expectProgramName, argError("unexpected program name %q, want %q", arg, ProgramName)
	}
	return expectOptions, nil
}

func (p *parser) expectOptions(arg string) (state, error) {
	switch {
	case arg == ".":
		return collectFiles, nil
	case len(arg) > 2 && strings.HasPrefix(arg, "--"):
		return expectOptions, p.longOption(arg)
	case len(arg) > 1 && strings.HasPrefix(arg, "-"):
		return expectOptions, p.shortOptionCluster(arg)
	}
	return expectOptions, argError("unexpected token %q, want an option or %q", arg, ".")
}

func (p *parser) collectFiles(arg string) (state, error) {
	p.files = append(p.files, arg)
	return collectFiles, nil
}

func (p *parser) longOption(arg string) error {
	name := strings.TrimPrefix(arg, "--")
	if value, ok := strings.CutPrefix(name, checksumSeedPrefix); ok {
		seed, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return argError("invalid option %q: checksum seed must be a 32-bit integer", arg)
		}
		s := int32(seed)
		p.seed = &s
		return nil
	}
	opt, ok := longOptions[name]
	if !ok {
		return argError("unknown option %q", arg)
	}
	p.set[opt] = true
	return nil
}

func (p *parser) shortOptionCluster(arg string) error {
	cluster := arg
	if marker := preReleaseMarker.FindString(cluster); marker != "" {
		if marker != "e." {
			p.preReleaseInfo = strings.TrimPrefix(marker, "e")
		}
		cluster = preReleaseMarker.ReplaceAllString(cluster, "")
	}
	for i := 0; i < len(cluster); i++ {
		c := cluster[i]
		if c == '.' || c == '-' {
			continue
		}
		opts, ok := shortOptions[c]
		if !ok {
			return argError("unknown option %q in %q", string(c), arg)
		}
		for _, opt := range opts {
			p.set[opt] = true
		}
	}
	return nil
}

// Parse parses an rsync command line of the form
//
//	rsync <options...> . <paths...>
//
// All errors wrap rsynk.ErrArgumentParse.
func Parse(args []string) (*Request, error) {
	p := &parser{
		set: make(map[Option]bool),
	}
	st := expectProgramName
	for _, arg := range args {
		next, err := transitions[st](p, arg)
		if err != nil {
			return nil, err
		}
		st = next
	}
	if st != collectFiles {
		return nil, argError("command line ended in state %v, missing %q separator", st, ".")
	}

	req := &Request{
		Options: newOptions(p.set, p.preReleaseInfo),
		Files:   p.files,
	}
	if p.seed != nil {
		req.ChecksumSeed = *p.seed
	} else {
		req.ChecksumSeed = rsyncchecksum.NewSeed()
	}
	return req, nil
}
