package version

import (
	"runtime/debug"
)

func Read() string {
	mainVersion := "<runtime/debug.ReadBuildInfo failed>"
	if info, ok := debug.ReadBuildInfo(); ok {
		mainVersion = info.Main.Version
	}
	return "rsynk " + mainVersion
}
