// Package exitcodes contains the constants representing possible bundlemux
// exit error codes.
package exitcodes

// ExitCode is just a type representing a process exit code for bundlemux.
type ExitCode uint8

// Values should be between 0 and 125, per POSIX shell conventions.
const (
	GoPanic           ExitCode = 100
	InvalidConfig     ExitCode = 104
	UpstreamFailed    ExitCode = 105
	CannotStartServer ExitCode = 106
)
