// Package parallel implements the collective operations of parallel-run
// mode, where several ranks cooperate on one logical run.
//
// Every collective call carries a round label, normally the operation name
// and the current sweep count. All ranks of a group must make the same
// calls with the same labels in the same order; the first disagreement is a
// collective desync and poisons the group, so every later call on any rank
// fails with the same error.
package parallel
