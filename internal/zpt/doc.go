// Package zpt implements the ZPT State Manager: per-session zoom/pan/tilt
// state and the applyTo projection that filters and scores retrieval
// candidates against it. The AND-predicate pan-matching shape is grounded
// on the teacher's filter-merging helpers in (removed)
// vectorstore/filter.go; community detection over the concept graph is a
// lazily recomputed, edge-count-invalidated cache purpose-built for §4.9.
package zpt
