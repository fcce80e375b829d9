package agent

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// ExecLogger writes one turn's PLAN/DISPATCH/ASSESS/ANSWER/GUARD transitions
// to an append-only markdown file, for operator debugging (spec §7: every
// answer's provenance names a failure kind and reason; this is the
// corresponding step-by-step trail behind that summary, not a user-facing
// feature). Thread-safe, though a turn only ever drives one goroutine
// through the node chain.
//
// A nil *ExecLogger is valid and every method on it is a no-op, so callers
// don't need to guard every call site on whether logging is enabled.
type ExecLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewExecLogger opens path for appending, creating it if necessary. Returns
// nil (not an error) to disable logging when path is empty.
func NewExecLogger(path string) (*ExecLogger, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open exec log: %w", err)
	}
	return &ExecLogger{file: f}, nil
}

// StartTurn writes a turn header with the session id and question.
func (l *ExecLogger) StartTurn(sessionID, question string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writef("# Turn %s\n\n**session**: %s  \n**question**: %s\n\n", time.Now().Format("2006-01-02T15:04:05"), sessionID, question)
}

// LogTransition writes one node's outcome as a markdown section.
func (l *ExecLogger) LogTransition(node, detail string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writef("## %s\n\n%s\n\n", node, detail)
}

// EndTurn writes the final summary and a rule to separate turns.
func (l *ExecLogger) EndTurn(retries int, answerLen int) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writef("**retries**: %d, **answer length**: %d chars\n\n---\n\n", retries, answerLen)
}

// Close closes the underlying file. Safe to call on a nil *ExecLogger.
func (l *ExecLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *ExecLogger) writef(format string, args ...interface{}) {
	fmt.Fprintf(l.file, format, args...)
}
