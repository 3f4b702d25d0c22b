// Package main hosts the vidshrink CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into calls on the
// workflow manager: compressing a selection of videos, saving or sharing the
// outputs of the latest batch, replacing originals, and inspecting history,
// the library catalog, and the host environment. Configuration and logging
// are resolved once per invocation in commandContext.
//
// Keep this package thin. New behavior belongs in the internal packages and
// is surfaced here as a command or flag.
package main
