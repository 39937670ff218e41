// Package version reports how the powermap binary was built.
//
// Version, Commit, Branch and BuildTime can be stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/powermap/version.Version=v1.2.0" ./cmd/powermap
//
// Anything left unset is filled from the VCS settings the Go toolchain
// records in the binary.
package version
