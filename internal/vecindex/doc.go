// Package vecindex implements the Vector Index: an in-memory approximate-NN
// cache over stable IDs, wrapping a chromem-go collection per logical kind
// namespace. It is pure cache — the Persistent Store is authoritative — so
// writes buffer and flush on a debounce timer rather than hitting the
// collection on every call, grounded on the teacher's debounced
// buffer-flush-with-circuit-breaker sync manager, retargeted here from
// local→remote replication to buffer→index flush.
package vecindex
