// Package exitcodes defines the standard exit codes used by op-trx.
package exitcodes

// Exit code constants used by op-trx
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when conversion succeeds and all results passed
// * TestFailure (1): Used when the converted run contains failed results
// * RuntimeErr (2): Used for runtime errors such as unreadable input or content errors
const (
	Success     = 0 // Conversion succeeded, all results passed
	TestFailure = 1 // Converted run contains failures
	RuntimeErr  = 2 // Runtime or content errors
)
