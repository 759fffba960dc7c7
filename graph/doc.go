// Package graph validates stack declarations and materializes them into
// dependency graphs. It combines two concerns that always travel together:
//
//  1. Schema validation — name uniqueness, source resolution, fan-in
//     ambiguity, edge type compatibility and cycle detection. Validation is a
//     pure function: it either yields a complete StackGraph or a structured
//     list of every problem found, never a partial graph.
//  2. Graph building — deriving (producer, output) -> (consumer, input) edges
//     and adjacency lists in both directions for O(1) neighbor lookup by the
//     planner and the change-propagation engine.
//
// Cycle detection uses depth-first traversal with a recursion stack so the
// reported error carries the full ordered cycle path, making remediation
// actionable without re-deriving the graph.
package graph
