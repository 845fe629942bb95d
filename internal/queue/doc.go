// Package queue is the in-memory work queue between the watcher and the
// dispatcher.
//
// Many producers (debounce timers, manual injection over IPC) push raw file
// events; a single dispatcher pops them in FIFO order with a bounded wait so
// shutdown is observed within one poll interval. Nothing is persisted: events
// pending at shutdown are lost.
package queue
