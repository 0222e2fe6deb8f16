package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or mute
// it. Safety-gate advisories (geographic CRS warnings, invalid geometry
// notices) are emitted through this logger so they never alter control flow.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Advisory logs a non-fatal advisory for a named operation. Advisories report
// conditions that are suspicious but not fatal; they must not change the data
// or the outcome of the operation they describe.
func Advisory(operation, format string, v ...interface{}) {
	args := append([]interface{}{operation}, v...)
	Logf("[advisory] %s: "+format, args...)
}
