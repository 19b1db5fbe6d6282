// Package sim implements the discrete-event substrate the simulation runs on.
// An Environment multiplexes cooperative processes onto a single event loop
// driven by a priority queue keyed by (timestamp, insertion order). Exactly one
// process runs at a time; a process gives up control by sleeping or by
// suspending on a resource, and the loop advances the virtual clock to the
// next scheduled wakeup.
package sim
