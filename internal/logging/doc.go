// Package logging provides file-based logging with rotation for
// laurus. Structured JSON logs are written to ~/.laurus/logs/ for
// debugging and troubleshooting.
//
// DefaultConfig writes to that rotating log file and also copies every
// record to stderr; Config.WriteToStderr turns the stderr copy off.
package logging
