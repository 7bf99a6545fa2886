// Package buildinfo provides build information for data-scribbler.
//
// Version, Commit and BuildTime are injected via ldflags. When they are
// not, Commit and GoVersion fall back to what the Go toolchain embedded in
// the binary.
//
// Usage:
//
//	go build -ldflags "-X .../buildinfo.Version=1.0.0 -X .../buildinfo.Commit=abc123"
//
// @design DS-0501
package buildinfo
