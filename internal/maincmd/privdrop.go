//go:build linux

package maincmd

import (
	"fmt"

	"github.com/boob-sbcm/rsynk/internal/log"
	"golang.org/x/sys/unix"
)

const nobody = 65534

func dropPrivileges() error {
	if unix.Getuid() != 0 {
		return nil
	}

	log.Printf("running as root (uid 0), dropping privileges to nobody (uid/gid %d)", nobody)
	if err := unix.Setgroups(nil); err != nil {
		return fmt.Errorf("setgroups: %v", err)
	}
	if err := unix.Setresgid(nobody, nobody, nobody); err != nil {
		return fmt.Errorf("setresgid(%d): %v", nobody, err)
	}
	if err := unix.Setresuid(nobody, nobody, nobody); err != nil {
		return fmt.Errorf("setresuid(%d): %v", nobody, err)
	}

	// Exit if uid/gid 0 permission can be re-gained:
	if err := unix.Setgid(0); err == nil {
		return fmt.Errorf("unexpectedly able to re-gain gid 0 permission!")
	}
	if err := unix.Setuid(0); err == nil {
		return fmt.Errorf("unexpectedly able to re-gain uid 0 permission!")
	}

	return nil
}
