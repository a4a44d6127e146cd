package maincmd

import (
	"fmt"
	"os"
)

// canUnexpectedlyWriteTo fails if the process can create files in dir. The
// served directory is only ever read, so write access hints at a
// misconfiguration (e.g. running as root).
func canUnexpectedlyWriteTo(dir string) error {
	f, err := os.CreateTemp(dir, ".rsynk-writetest-*")
	if err != nil {
		return nil
	}
	f.Close()
	os.Remove(f.Name())
	return fmt.Errorf("unexpectedly able to write file to %s, exiting", dir)
}
