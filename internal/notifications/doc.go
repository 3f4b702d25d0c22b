// Package notifications delivers batch events via ntfy.
//
// The service publishes to the topic configured in config.toml and degrades
// to a no-op when no topic is set. Each event kind can be switched off
// individually so a noisy batch does not flood the phone.
package notifications
