// bootstrap verifies that a web server check script runs on a freshly
// launched instance, remediating the two failure modes it knows how to fix.
//
// # States
//
//   - Checking: exit 0 -> Succeeded, 127 -> RemediatingInterpreter,
//     2 -> RemediatingScript, otherwise stays in Checking (or Exhausted).
//   - RemediatingInterpreter, RemediatingScript: back to Checking (or
//     Exhausted).
//   - Succeeded, Exhausted: terminal.
//
// Checking runs '<interpreter> <script>' in the remote user's home directory
// and classifies the exit status: 0 is success, 127 means the interpreter is
// missing (the shell's "command not found"), 2 means the script is missing
// (the interpreter's "can't open file"), anything else is an unrecognized
// failure.
//
// RemediatingInterpreter updates the system packages and installs the
// interpreter package. RemediatingScript copies the local script to the
// remote home directory.
//
// # Retry budget
//
// A single budget (default 3) is spent once per loop iteration, whichever
// branch ran. A failed check with nothing to remediate spends it immediately;
// a remediation spends it once it completes. When the budget reaches zero
// before a successful check, the sequencer stops in Exhausted.
//
// Both remediation paths share the one budget, so an instance missing both
// the interpreter and the script needs all three iterations to reach a
// passing check. Raise 'Config.Budget' for hosts expected to need more.
package bootstrap
