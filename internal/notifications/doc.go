// Package notifications pushes evaluation events to ntfy.
//
// Service publishes a small set of enumerated events and degrades to a no-op
// when no topic is configured. Consumer adapts a Service into a result sink
// consumer that reports rejected files and streak milestones.
package notifications
