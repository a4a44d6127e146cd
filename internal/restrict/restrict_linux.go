// Package restrict can be used to restrict further file system access of the
// process if the operating system provides an API for that.
package restrict

import (
	"fmt"
	"os"

	"github.com/boob-sbcm/rsynk/internal/log"
	"github.com/landlock-lsm/go-landlock/landlock"
)

// ExtraHook is set when testing to make the landlock rule set more permissive.
var ExtraHook func() []landlock.Rule

// As of Go 1.24, the net package Go resolver reads
// the following DNS configurations files:
var dnsLookup = []string{
	"/etc/resolv.conf",
	"/etc/hosts",
	"/etc/services",
	"/etc/nsswitch.conf",
}

// User and group names are looked up for file list entries.
var userLookup = []string{
	"/etc/passwd",
	"/etc/group",
}

var devices = []string{
	"/dev/null",
}

// Rules returns the landlock rules which keep the server functional with
// read-only access to the served directories and read-write access to
// rwDirs (e.g. for generating the SSH host key).
func Rules(roDirsOrFiles []string, rwDirs []string) ([]landlock.Rule, error) {
	var roDirs, roFiles []string
	for _, fn := range roDirsOrFiles {
		st, err := os.Stat(fn)
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			roDirs = append(roDirs, fn)
		} else {
			roFiles = append(roFiles, fn)
		}
	}
	var rules []landlock.Rule
	if ExtraHook != nil {
		rules = append(rules, ExtraHook()...)
	}
	return append(rules,
		landlock.ROFiles(dnsLookup...).IgnoreIfMissing(),
		landlock.ROFiles(userLookup...).IgnoreIfMissing(),
		landlock.RWFiles(devices...).IgnoreIfMissing(),
		landlock.RODirs(roDirs...),
		landlock.ROFiles(roFiles...),
		landlock.RWDirs(rwDirs...).WithRefer(),
	), nil
}

// MaybeFileSystem restricts file system access of the process to what
// Rules permits, if the kernel supports landlock.
func MaybeFileSystem(roDirsOrFiles []string, rwDirs []string) error {
	rules, err := Rules(roDirsOrFiles, rwDirs)
	if err != nil {
		return err
	}
	log.Printf("setting up landlock ACL (paths ro: %q, paths rw: %q)", roDirsOrFiles, rwDirs)
	if err := landlock.V3.BestEffort().RestrictPaths(rules...); err != nil {
		return fmt.Errorf("landlock: %v", err)
	}

	// Check whether landlock worked and print the result to the log.
	//
	// We use /sys because that path should never be required
	// for regular functioning, yet is standard enough to be present
	// on all supported Linux versions.
	const verifyPath = "/sys"
	if _, err := os.ReadDir(verifyPath); err == nil {
		log.Printf("landlock seems ineffective: readdir(%s) unexpectedly worked!", verifyPath)
	} else {
		log.Printf("landlock verified: readdir(%s) = %v", verifyPath, err)
	}

	return nil
}
