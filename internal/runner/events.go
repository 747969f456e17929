package runner

import "browsebench/internal/dnsbench"

// Event is one message on the run's ordered event stream. The foreground drains
// the stream from a single channel; emission order is part of the contract
// (progress before its result, Done strictly last).
type Event interface {
	event()
}

// ProgressEvent reports matrix position: Current of Total steps.
type ProgressEvent struct {
	Current int
	Total   int
}

// StatusEvent is a human-readable phase message.
type StatusEvent struct {
	Message string
}

// ResultEvent carries one finished measurement.
type ResultEvent struct {
	Result Result
}

// FatalEvent surfaces a session setup failure to the operator. The run
// continues with the next URL; this is a notice, not a terminal signal.
type FatalEvent struct {
	Message string
}

// DNSResultsEvent carries the optional DNS probe phase output.
type DNSResultsEvent struct {
	Results dnsbench.Results
}

// DoneEvent is emitted exactly once per run, last, on every path.
type DoneEvent struct {
	Stopped bool
}

func (ProgressEvent) event()   {}
func (StatusEvent) event()     {}
func (ResultEvent) event()     {}
func (FatalEvent) event()      {}
func (DNSResultsEvent) event() {}
func (DoneEvent) event()       {}
