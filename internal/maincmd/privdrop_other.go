//go:build !linux

package maincmd

func dropPrivileges() error { return nil }
