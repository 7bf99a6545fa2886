// Package connection provides the scribbler-cli client for a data-scribbler
// server.
//
//   - http.go: HTTP/HTTPS transport
//   - api.go: typed update, save and pointer calls
//
// @design DS-0602
package connection
