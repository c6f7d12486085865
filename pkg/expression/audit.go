package expression

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// violationHistorySize bounds the most-recent violation list.
	violationHistorySize = 50
	// violationSnippetLimit bounds how much of an offending expression is
	// retained in the audit trail.
	violationSnippetLimit = 120
)

// Violation is one audited rejection: when it happened, a bounded prefix of
// the offending expression, and the reason it was rejected.
type Violation struct {
	At         time.Time `json:"at"`
	Expression string    `json:"expression"`
	Reason     string    `json:"reason"`
}

// Stats is a snapshot of the auditor's counters and recent history.
type Stats struct {
	TotalEvaluations   uint64      `json:"total_evaluations"`
	SecurityViolations uint64      `json:"security_violations"`
	RecentViolations   []Violation `json:"recent_violations"`
}

// Auditor records evaluation counts and a bounded ring of rejected
// expressions. The engine is shared by concurrent callers, so the counters
// are atomics and the ring is mutex-guarded.
type Auditor struct {
	evaluations atomic.Uint64
	violations  atomic.Uint64

	mu     sync.Mutex
	recent []Violation // ring buffer, next is the slot to overwrite
	next   int
	filled bool
}

func NewAuditor() *Auditor {
	return &Auditor{
		recent: make([]Violation, violationHistorySize),
	}
}

// RecordEvaluation counts one evaluation attempt.
func (a *Auditor) RecordEvaluation() {
	a.evaluations.Add(1)
}

// RecordViolation counts one rejection and appends it to the history,
// evicting the oldest entry once the ring is full.
func (a *Auditor) RecordViolation(reason, expr string) {
	a.violations.Add(1)

	if runes := []rune(expr); len(runes) > violationSnippetLimit {
		expr = string(runes[:violationSnippetLimit])
	}
	v := Violation{At: time.Now(), Expression: expr, Reason: reason}

	a.mu.Lock()
	a.recent[a.next] = v
	a.next++
	if a.next == len(a.recent) {
		a.next = 0
		a.filled = true
	}
	a.mu.Unlock()
}

// Stats returns a snapshot. RecentViolations is ordered oldest to newest.
func (a *Auditor) Stats() Stats {
	s := Stats{
		TotalEvaluations:   a.evaluations.Load(),
		SecurityViolations: a.violations.Load(),
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.filled {
		s.RecentViolations = make([]Violation, 0, len(a.recent))
		s.RecentViolations = append(s.RecentViolations, a.recent[a.next:]...)
		s.RecentViolations = append(s.RecentViolations, a.recent[:a.next]...)
	} else {
		s.RecentViolations = append([]Violation(nil), a.recent[:a.next]...)
	}
	return s
}
