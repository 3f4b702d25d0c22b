// Package logging builds the slog loggers used by vidshrink: a compact
// console or JSON stream at the configured level, teed into a daily JSON file
// that always keeps debug detail. Helpers tag lines with batch and item
// position from the context.
package logging
