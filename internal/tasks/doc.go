// package tasks implements the background managers that coordinate the
// external fetch tool: the download manager, the feed sync manager, and the
// metadata worker.
//
// Each manager runs a single consumer loop over its own command channel and
// spawns work units as goroutines. The loop is the only writer of a
// manager's command state; coordination flags shared with in-flight work
// (cancellation set, pause flag) go through narrow thread-safe handles.
// Work unit outcomes never propagate as command errors: they are folded into
// persisted status updates and published events.
package tasks
