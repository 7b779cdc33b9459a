// Package build contains the build-time information of bundlemux.
package build

// Version contains the current semantic version of bundlemux.
const Version = "0.4.0"
