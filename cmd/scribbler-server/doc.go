// Package main provides the entry point for scribbler-server.
//
// scribbler-server stores the version history of collaborative documents
// and serves the editor's update and save calls plus the polled latest
// pointer.
//
// Usage:
//
//	scribbler-server -config /etc/scribbler-server/config.yaml
//	SCRIBBLER_STORAGE__DRIVER=badger scribbler-server -data-dir /srv/docs
//
// @design DS-0501
package main
