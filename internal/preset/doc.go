// Package preset defines the quality presets a batch is compressed with.
//
// Each preset bundles a maximum output dimension with the policy of dropping
// the audio track. The engine receives these as a Strategy; the same preset is
// applied uniformly to every item of a batch. The package also estimates the
// output size of a compression so the CLI can show expected savings before a
// batch starts.
package preset
