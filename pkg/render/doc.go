// Package render draws refined diagrams for inspection and export.
//
// Two output paths are supported:
//
//   - Handwritten SVG: every element drawn by category (rounded rectangles
//     for tasks, circles for events, diamonds for gateways) with orthogonal
//     connection polylines. Options control scale, labels, and a debug grid
//     overlay. No external tooling involved.
//   - DOT: a Graphviz description of the diagram topology, optionally with
//     type and position annotations, rasterised to PNG through
//     goccy/go-graphviz.
//
// The SVG path draws coordinates exactly as they appear in the registry;
// it never re-lays-out the diagram. That makes it suitable for verifying
// refinement output visually.
package render
