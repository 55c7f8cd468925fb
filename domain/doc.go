// Package domain holds the Job/Task aggregate and the messages that
// drive it. Everything here is pure data and transition logic: no I/O,
// no clock beyond creation stamps, no bus.
//
// A Job is the aggregate root and single consistency boundary. Tasks are
// owned exclusively by their Job and are mutated only through the Job's
// methods. Every mutating method appends a domain event to the Job's
// transient event list; the unit of work drains that list exactly once
// per commit and republishes the events through the bus.
package domain
