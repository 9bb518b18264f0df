// Package diagnostics is the best-effort reporting side of the pipeline:
// leveled structured logging plus an append-only plain-text error log.
// Nothing in here ever returns an error to the caller.
package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"innerbloom-server/internal/candidates"

	"go.uber.org/zap"
)

// ErrorLogName is the file name of the append-only error log.
const ErrorLogName = "generation-errors.log"

// DefaultDir is used when no candidate directory is writable.
const DefaultDir = "exports"

// Meta is optional structured metadata attached to a log entry.
type Meta map[string]any

// Sink writes diagnostics. It is safe for concurrent use.
type Sink struct {
	log  *zap.Logger
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// DefaultDirs returns the candidate export directories in priority order.
func DefaultDirs(appRoot, override string) candidates.List {
	return candidates.Paths(appRoot, override, "exports", "../exports").
		Then(candidates.List{filepath.Join(os.TempDir(), "innerbloom", "exports")})
}

// NewSink picks the first writable directory among dirs. When none is
// writable it falls back to DefaultDir; later writes may then fail, which is
// only logged.
func NewSink(log *zap.Logger, dirs candidates.List) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("Diagnostics")

	dir, ok := candidates.FirstDir(dirs, writable)
	if !ok {
		dir = DefaultDir
		log.Warn("No writable diagnostics directory found, using default",
			zap.Strings("candidates", dirs), zap.String("default", dir))
	}

	return &Sink{
		log:  log,
		path: filepath.Join(dir, ErrorLogName),
		now:  time.Now,
	}
}

// Nop returns a Sink that only logs. It never touches the filesystem.
func Nop(log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{log: log.Named("Diagnostics"), now: time.Now}
}

func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	f, err := os.OpenFile(filepath.Join(dir, ErrorLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// Path returns the error log location, empty for a Nop sink.
func (s *Sink) Path() string { return s.path }

// Logger returns the underlying zap logger.
func (s *Sink) Logger() *zap.Logger { return s.log }

func (s *Sink) Debug(msg string, meta Meta) { s.log.Debug(msg, fields(meta)...) }
func (s *Sink) Info(msg string, meta Meta)  { s.log.Info(msg, fields(meta)...) }
func (s *Sink) Warn(msg string, meta Meta)  { s.log.Warn(msg, fields(meta)...) }
func (s *Sink) Error(msg string, meta Meta) { s.log.Error(msg, fields(meta)...) }

// AppendError logs err and appends one line to the error log.
func (s *Sink) AppendError(stage string, err error, meta Meta) {
	if err == nil {
		return
	}
	fs := append(fields(meta), zap.String("stage", stage), zap.Error(err))
	s.log.Error("Generation stage failed", fs...)
	if s.path == "" {
		return
	}

	line := formatLine(s.now(), stage, err, meta)

	s.mu.Lock()
	defer s.mu.Unlock()

	f, openErr := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if openErr != nil {
		s.log.Warn("Failed to open diagnostics log", zap.String("path", s.path), zap.Error(openErr))
		return
	}
	defer f.Close()
	if _, writeErr := f.WriteString(line); writeErr != nil {
		s.log.Warn("Failed to append diagnostics log", zap.String("path", s.path), zap.Error(writeErr))
	}
}

func formatLine(ts time.Time, stage string, err error, meta Meta) string {
	var b strings.Builder
	b.WriteString(ts.UTC().Format(time.RFC3339))
	b.WriteString(" [")
	b.WriteString(stage)
	b.WriteString("]")
	for _, k := range sortedKeys(meta) {
		fmt.Fprintf(&b, " %s=%s", k, oneLine(fmt.Sprint(meta[k])))
	}
	b.WriteString(" ")
	b.WriteString(oneLine(err.Error()))
	b.WriteString("\n")
	return b.String()
}

// oneLine keeps one entry per line.
func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", `\n`)
}

func fields(meta Meta) []zap.Field {
	if len(meta) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(meta))
	for _, k := range sortedKeys(meta) {
		out = append(out, zap.Any(k, meta[k]))
	}
	return out
}

func sortedKeys(meta Meta) []string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
