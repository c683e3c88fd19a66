// Package exitcodes defines the standard exit codes used by runtest.
package exitcodes

// Exit code constants used by runtest.
//
// * Success (0): every listed test binary was spawned, whatever its own exit status
// * ConfigErr (1): invalid flags or configuration
// * RuntimeErr (2): a test binary could not be spawned, or the runner panicked
const (
	Success    = 0 // All test binaries ran
	ConfigErr  = 1 // Flag or config errors
	RuntimeErr = 2 // Spawn failures or panics
)
