// Package preflight holds the checks vidshrink runs before touching files.
//
// CheckVideoRead is the permission gate applied to every selection before a
// batch starts: sources the user cannot read are reported through a status
// message and left out, and the batch continues with the rest. RunAll backs
// the "vidshrink status" command with directory, free-space, and binary
// checks.
package preflight
