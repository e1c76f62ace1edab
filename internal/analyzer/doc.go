// Package analyzer scans the unread inbox for frequent senders that no
// rule governs yet and turns them into rule suggestions. Scanning is
// deliberately slow (per-message pacing, small batches) to stay well
// under Gmail quota, and cooperates with cancellation through both the
// context and a progress callback.
package analyzer
