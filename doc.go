// Package reporter is the orchestration core of the viral marketing
// reporter: it turns one submitted batch of (keyword, target posts,
// platform) search tasks into a job that fans out, executes each task
// against a search platform, and aggregates per-task completion into
// whole-job completion.
//
// The core is built from three cooperating primitives:
//
//   - the Job aggregate (package domain): a pure state machine that
//     stamps domain events on every mutation
//   - the message bus (package bus): routes commands to exactly one
//     handler and events to all subscribers, re-entrantly
//   - the unit of work (package uow): a transactional scope that
//     persists touched aggregates and only then republishes their
//     drained events through the bus
//
// # Quick Start
//
//	eng, err := engine.Build(memory.New())
//	jobID := id.NewJobID()
//	err = eng.Submit(ctx, jobID, specs)   // blocks until the job settles
//	result, err := eng.Result(ctx, jobID)
//
// Custom searchers plug in through engine.WithPlatform; the default
// binding covers Naver blog search.
//
// Scraping mechanics, persistence technology, and the presentation layer
// are collaborators behind narrow interfaces; the root package holds only
// what every subsystem shares: sentinel errors, entity timestamps, and
// configuration.
package reporter
