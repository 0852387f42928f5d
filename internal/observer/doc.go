// Package observer keeps a standing query live.
//
// An Observer runs its specification once when started and delivers every
// product to the Added callback. After that, each batch of newly saved
// facts passed to Notify re-runs the query, and the result is diffed
// against what was delivered so far: new products are added, vanished
// products are removed.
//
// Thread-safety model:
//   - Notify, Stop, Err and State: safe from any goroutine
//   - Start: once
//   - Callbacks: called from the observer's single goroutine, never
//     concurrently with each other
//
// States move one way: Created -> Initializing -> Active -> Stopped.
// Stop may be called in any state, including before Start.
package observer
