// Package watcher turns file-creation events in the watch directory into work
// queue entries.
//
// Only non-directory files whose extension is registered are considered. Each
// accepted event is debounced: the enqueue happens after a fixed delay so the
// instrument has time to finish writing. Every event gets its own timer, so
// files landing within one debounce window may reach the queue in a different
// order than they were created.
package watcher
