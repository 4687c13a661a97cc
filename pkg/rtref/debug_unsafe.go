//go:build rtref_unsafe_debug

package rtref

// unsafeDebug lets Cell.String read the value without borrowing it.
const unsafeDebug = true
