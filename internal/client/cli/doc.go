// Package cli implements the interactive command-line frontend of the
// Beacon client. It wraps the app composition root and drives it from a
// small read-eval-print loop; it exists mainly as a development and
// diagnostics surface for the offline core.
package cli
