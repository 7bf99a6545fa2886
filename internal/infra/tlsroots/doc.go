// Package tlsroots loads TLS material for data-scribbler.
//
// roots.go builds client configs that trust extra CA files on top of the
// system pool. keypair.go serves the server certificate and reloads it
// when the files on disk are replaced.
//
// @design DS-0501
package tlsroots
