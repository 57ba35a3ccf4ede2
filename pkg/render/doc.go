// Package render provides the optional page-rendering capability used by the
// resolver's primary stage.
//
// Renderer has two implementations chosen at construction time:
//
//   - ScriptRenderer fetches the page through the shared HTTP client, parses
//     it with goquery and executes its inline scripts in a goja VM. Scripts
//     see window, self, console and a document shim whose getElementById and
//     querySelector return live element views (textContent, innerHTML).
//     Globals named after a configured data island are serialized into a
//     JSON script element once the scripts finish.
//   - NopRenderer reports ErrUnavailable without touching the network.
//
// Script execution is bounded by Options.Timeout; a script still running at
// the deadline is interrupted and Render returns ErrTimeout.
package render
