//go:build !rtref_unsafe_debug

package rtref

const unsafeDebug = false
