// Package naming derives output file paths from input media paths.
//
// The output of a run sits next to its input: the input's stem gets a fixed
// compound suffix, so "show/ep01.mp4" becomes "show/ep01.with_data.mkv".
// Paths are resolved before any engine resource is allocated.
package naming
