// Package stress drives many goroutines against a shared rtmap.Map and
// checks that the run-time borrow check never lets borrows alias.
//
// Every cell holds a Sample whose two halves are written under one
// exclusive borrow with a gap in between. A shared borrow that observes
// A != B saw a write in progress. Each cell also has a witness counting the
// readers and writers that believe they hold it; a writer that finds any
// other holder, or a reader that finds a writer, is an aliasing violation.
// After the run the sum of all A values must equal the number of writes.
package stress
