// Package graph builds the requirement dependency graph and derives the
// flattened report view.
//
// # Overview
//
// Requirements declare "implements" references to zero or more parents,
// forming a directed graph that is usually a DAG but may contain cycles or
// dangling references when the source documents are mis-modeled. The package
// runs a three-stage pipeline over one freshly loaded requirement collection:
//
//   - Resolve derives parent→child adjacency, the root set, the orphan set,
//     and any cycles.
//   - ComputeCoverage classifies each requirement as full, partial, or
//     unimplemented by rolling up implementation files bottom-up.
//   - Flatten emits one Instance per occurrence of a requirement in a
//     pre-order walk, so a requirement reachable through several parents
//     renders as several independently collapsible copies.
//
// # Failure semantics
//
// Structural anomalies in the input (cycles, orphans, excessive depth) are
// expected conditions: they are surfaced as data (cycle lists, marker
// instances) and never abort report generation. A requirement set with a
// modeling mistake still produces a usable report highlighting the mistake.
//
// # Concurrency
//
// The pipeline is single-threaded and allocates fresh state per run. Nothing
// in this package is safe for concurrent mutation; concurrent report
// requests must each use their own Resolution, coverage map, and instance
// list.
package graph
