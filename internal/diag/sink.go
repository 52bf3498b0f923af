// Package diag collects per-declaration diagnostics produced anywhere in
// the pipeline. The sink is safe for concurrent use; the report it hands
// back is sorted so output is reproducible regardless of scheduling.
package diag

import (
	"sort"
	"sync"
)

// Kind separates skip records from plain warnings.
type Kind int

const (
	Warning Kind = iota
	Skipped
)

func (k Kind) String() string {
	if k == Skipped {
		return "skipped"
	}
	return "warning"
}

// Entry is one diagnostic, keyed by the class or Class.selector
// identifier it concerns. Rule carries the ownership rule identifier when
// the entry was produced by the resolver.
type Entry struct {
	ID     string
	Kind   Kind
	Reason string
	Rule   string
}

// Sink accumulates entries from concurrently running per-class work.
type Sink struct {
	mu      sync.Mutex
	entries []Entry
}

func NewSink() *Sink {
	return &Sink{}
}

// Skip records that a declaration was excluded from the binding plan.
func (s *Sink) Skip(id, reason string) {
	s.add(Entry{ID: id, Kind: Skipped, Reason: reason})
}

// Warn records a recoverable condition that did not exclude anything.
func (s *Sink) Warn(id, reason string) {
	s.add(Entry{ID: id, Kind: Warning, Reason: reason})
}

// WarnRule records a warning attributed to a named resolver rule.
func (s *Sink) WarnRule(id, reason, rule string) {
	s.add(Entry{ID: id, Kind: Warning, Reason: reason, Rule: rule})
}

func (s *Sink) add(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

// Report returns a sorted copy of all entries: by identifier, then kind,
// then reason. Safe to call while producers are still running.
func (s *Sink) Report() []Entry {
	s.mu.Lock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// Skips returns only the skip records, sorted.
func (s *Sink) Skips() []Entry {
	var skips []Entry
	for _, e := range s.Report() {
		if e.Kind == Skipped {
			skips = append(skips, e)
		}
	}
	return skips
}

// Warnings returns only the warnings, sorted.
func (s *Sink) Warnings() []Entry {
	var warns []Entry
	for _, e := range s.Report() {
		if e.Kind == Warning {
			warns = append(warns, e)
		}
	}
	return warns
}
