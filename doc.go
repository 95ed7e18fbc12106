// Package durable provides an embeddable, checkpoint-backed workflow
// execution engine for Go.
//
// It runs a sequence of named steps on behalf of a long-lived business
// process, persists the result of every completed step, and resumes an
// interrupted process from its last successful step instead of
// re-running completed work. A process can also park indefinitely on a
// human decision and be resumed later with that decision as an input.
//
// # Core Concepts
//
//  1. Manager
//  2. Instance
//  3. Operation
//  4. Checkpoint stores
//  5. Sequence
//
// # Manager
//
// The Manager is the registry of workflow instances. It creates them,
// looks them up (reconstructing from the checkpoint store after a
// restart), lists them, resolves pending approvals, and garbage-collects
// terminal records. It enforces one live instance per identity and at
// most one active execution per identity at a time; a second concurrent
// driver either blocks or fails fast with ErrBusy, selected via
// WithBusyMode.
//
// Construct one Manager at startup and share it; there is no implicit
// global.
//
// # Instance
//
// An Instance is a single running process. Drive it forward by calling
// Step with a name and an Operation: if the step already succeeded, the
// stored result is replayed and the operation is never invoked; otherwise
// the operation runs under the retry policy and its result is
// checkpointed before being returned. AwaitApproval parks the instance
// durably with no goroutine held open; ResolveApproval (from any process,
// hours or days later) unblocks it.
//
// # Operation
//
// An Operation is the fundamental executable unit:
//
//	type Operation func(ctx context.Context, input Payload) Outcome
//
// It returns a tagged Outcome: Succeed(value), Retryable(err), or
// Fatal(err). Operations are assumed non-idempotent, which is exactly
// why succeeded steps are replayed rather than re-executed.
//
// # Checkpoint stores
//
// Managers can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Postgres
//   - Redis
//   - MongoDB
//
// Every snapshot write is a full, atomic, per-identity overwrite, and a
// step result is only returned to the caller after the store has
// acknowledged it.
//
// # Sequence
//
// Sequence provides a declarative way to describe an ordered step list
// with approval gates and drive it repeatedly until done:
//
//	seq := durable.NewSequence("lead_processing").
//	    Step("enrich", enrichLead).
//	    ApprovalGate("confirm outreach?").
//	    Step("send", sendMessage)
//
//	result, err := seq.Run(ctx, mgr, "case-1", input)
//
// For runnable programs, see the /examples directory.
package durable
