// Package grid holds the preview grid state: a bounded, ordered list of cells
// mixing uploaded images and fetched posts, an upload quota and the cell
// currently offered for deletion.
//
// The transitions in state.go are pure functions of (State, input). Engine
// wraps them with a mutex, the delayed clear of the deletion selection and
// snapshot subscribers so the HTTP and terminal surfaces can share one grid.
//
// Layout rules:
//   - uploaded cells always come before fetched cells after a rebuild;
//   - the grid never holds more than Capacity cells, and overflow is cut from
//     the end, so fetched cells go first and the newest cells within a class
//     are dropped first;
//   - ids are unique.
package grid
