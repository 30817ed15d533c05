// Package domain defines the observation mini-model used by obscore: programs,
// their AND/OR group trees, observations, atoms, targets and the constraints
// that govern when an observation may run.
//
// The package is a pure computation layer. It performs no I/O and holds no
// locks; rollups are read-only and recomputed from the tree on every call.
// The few mutators on *Program (observed flags, QA state, group progress) are
// meant to run on a private copy obtained from Program.Clone, so readers of
// the original tree never see a partial update.
package domain
