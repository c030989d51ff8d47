// Package node implements the three server roles of the firequery
// tree: root leader, team leader and worker.
//
// # Topology
//
//	client ──► Leader ──► TeamLeader (green) ──► Worker, Worker, ...
//	                 └──► TeamLeader (pink)  ──► Worker, Worker, ...
//
// Every node owns a disjoint set of YYYYMMDD date partitions. A query
// fans out down the tree; record chunks stream back up the same edges
// and the leader merges them onto the single client stream.
//
// # Roles
//
// Worker: terminal node. Intersects the query's date range with its
// owned dates, loads matching records and streams them as ordered
// chunks. End-of-stream terminates; there is no explicit final marker
// on delegate streams.
//
// TeamLeader: serves Delegate by concatenating two sub-streams: first
// its own partition, then each configured worker in order, forwarded
// chunk by chunk with the producer id preserved. Workers run
// sequentially; a failed worker is logged and skipped, the rest still
// run.
//
// Leader: serves the client-facing Query RPC with the fan-out
// multiplexer (see mux.go):
//
//	┌───────────────────────── Leader ─────────────────────────┐
//	│                                                          │
//	│  reader(green) ──► [bounded buffer] ──┐                  │
//	│                                       ├─► relay loop ──► client
//	│  reader(pink)  ──► [bounded buffer] ──┘   (round-robin,  │
//	│                                            renumbering)  │
//	└──────────────────────────────────────────────────────────┘
//
// One reader goroutine per team pulls chunks from the downstream
// stream into a bounded buffer; a full buffer blocks the reader,
// which is the system's only backpressure mechanism. The relay loop
// takes at most one chunk per team per round, renumbers it into the
// dense upstream sequence and writes it to the client, then emits a
// single final chunk carrying the totals. Client cancellation is
// propagated into every downstream call context, and every reader is
// joined on every exit path.
//
// # Concurrency
//
// Per in-flight query at the leader: one relay goroutine (the RPC
// handler itself) plus one reader per selected team. The bounded
// buffer is the only synchronization point between them; no lock is
// held across an RPC send or receive.
package node
