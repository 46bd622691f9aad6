// Package conversation holds per-session conversation state: the transcript,
// confirmed facts, turn and tool-call counters, and the follow-up questions
// the assistant is waiting on.
//
// Nothing in this package blocks or locks. A Session is owned by exactly one
// caller for the duration of a turn.
package conversation
