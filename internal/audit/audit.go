// Package audit keeps a tamper-evident journal of the commands issued to the
// resolver.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/breeze-rmm/pkgreconcile/internal/logging"
)

var log = logging.L("audit")

// Event types for the journal.
const (
	EventRunStart        = "run_start"
	EventRunStop         = "run_stop"
	EventSelect          = "select"
	EventRemove          = "remove"
	EventNeutral         = "neutral"
	EventSnapshotWritten = "snapshot_written"
	EventLogRotated      = "log_rotated"
)

// Genesis is the previous hash of the first entry of a new journal.
const Genesis = "genesis"

// criticalEvents are event types that require fsync after writing.
var criticalEvents = map[string]bool{
	EventRunStart:        true,
	EventRunStop:         true,
	EventSnapshotWritten: true,
}

// Entry is a single journal record.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	EventType string         `json:"eventType"`
	RunID     string         `json:"runId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	PrevHash  string         `json:"prevHash"`
	EntryHash string         `json:"entryHash"`
}

// Logger writes a tamper-evident JSONL journal with a SHA-256 hash chain.
// On log rotation, a sentinel entry (EventLogRotated) is written as the first
// record in the new file, with prevHash linking to the last entry of the old file.
type Logger struct {
	mu         sync.Mutex
	file       *os.File
	filePath   string
	maxSize    int64
	maxBackups int
	written    int64
	prevHash   string
	dropped    atomic.Int64
}

// NewLogger creates a journal writing to filePath. Non-positive limits fall
// back to 50 MB and 3 backups. An existing journal is appended to and its
// chain continued.
func NewLogger(filePath string, maxSizeMB, maxBackups int) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	if maxBackups <= 0 {
		maxBackups = 3
	}

	prevHash, err := lastHash(filePath)
	if err != nil {
		return nil, err
	}

	l := &Logger{
		filePath:   filePath,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		maxBackups: maxBackups,
		prevHash:   prevHash,
	}

	if err := l.openFile(); err != nil {
		return nil, err
	}

	log.Info("audit journal opened", "path", filePath)
	return l, nil
}

// Log writes a single journal entry with hash chain linking.
// The hash chain is only advanced after a successful write to prevent
// gaps: if the write fails, the next entry will re-link to the same prevHash.
// Safe to call on a nil receiver (no-op).
func (l *Logger) Log(eventType string, runID string, details map[string]any) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		EventType: eventType,
		RunID:     runID,
		Details:   details,
		PrevHash:  l.prevHash,
	}

	entryHash, err := computeHash(entry)
	if err != nil {
		log.Error("failed to compute audit entry hash", "error", err, "eventType", eventType)
		l.dropped.Add(1)
		return
	}
	entry.EntryHash = entryHash

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error("failed to marshal audit entry", "error", err, "eventType", eventType)
		l.dropped.Add(1)
		return
	}
	data = append(data, '\n')

	if l.written+int64(len(data)) > l.maxSize {
		if err := l.rotate(); err != nil {
			log.Error("audit log rotation failed", "error", err)
			l.dropped.Add(1)
			return
		}
	}

	n, err := l.file.Write(data)
	if err != nil {
		log.Error("failed to write audit entry", "error", err, "eventType", eventType)
		l.dropped.Add(1)
		return
	}
	l.written += int64(n)

	// Only advance hash chain after successful write
	l.prevHash = entry.EntryHash

	// Fsync critical entries to ensure they survive a crash
	if criticalEvents[eventType] {
		if err := l.file.Sync(); err != nil {
			log.Error("failed to fsync critical audit entry, durability not guaranteed", "error", err, "eventType", eventType)
		}
	}
}

// Close flushes and closes the audit log file.
// Safe to call on a nil receiver (no-op).
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// DroppedCount returns the number of audit entries that failed to write.
// Returns -1 if the logger is nil (not initialized), distinguishing
// "logger not available" from "logger working with zero drops".
func (l *Logger) DroppedCount() int64 {
	if l == nil {
		return -1
	}
	return l.dropped.Load()
}

// computeHash produces the SHA-256 hash for a journal entry.
// Fields are length-prefixed so that no two field combinations collide.
func computeHash(entry Entry) (string, error) {
	h := sha256.New()
	for _, field := range []string{entry.Timestamp, entry.EventType, entry.RunID, entry.PrevHash} {
		fmt.Fprintf(h, "%d:%s", len(field), field)
	}
	if entry.Details != nil {
		detailBytes, err := json.Marshal(entry.Details)
		if err != nil {
			return "", fmt.Errorf("marshal details for hash: %w", err)
		}
		fmt.Fprintf(h, "%d:", len(detailBytes))
		h.Write(detailBytes)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (l *Logger) openFile() error {
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat audit log: %w", err)
	}

	l.file = f
	l.written = info.Size()
	return nil
}

func (l *Logger) rotate() error {
	// Save prevHash before rotation so we can link to it
	prevHashBeforeRotation := l.prevHash

	if l.file != nil {
		l.file.Close()
	}

	// Shift existing backups: .3 → delete, .2 → .3, .1 → .2
	for i := l.maxBackups; i >= 2; i-- {
		src := l.backupName(i - 1)
		dst := l.backupName(i)
		if i == l.maxBackups {
			if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
				log.Warn("audit log rotation: failed to remove oldest backup", "path", dst, "error", err)
			}
		}
		if err := os.Rename(src, dst); err != nil && !os.IsNotExist(err) {
			log.Warn("audit log rotation: failed to rename backup", "src", src, "dst", dst, "error", err)
		}
	}

	// Rename current log to .1
	if err := os.Rename(l.filePath, l.backupName(1)); err != nil && !os.IsNotExist(err) {
		log.Warn("audit log rotation: failed to rename current log", "error", err)
	}

	if err := l.openFile(); err != nil {
		return err
	}

	// Write rotation sentinel as first entry in new file
	sentinel := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		EventType: EventLogRotated,
		PrevHash:  prevHashBeforeRotation,
		Details: map[string]any{
			"previousFile": l.backupName(1),
		},
	}
	sentinelHash, err := computeHash(sentinel)
	if err != nil {
		log.Error("rotation sentinel hash failed, hash chain broken", "error", err)
		l.dropped.Add(1)
		l.prevHash = "chain-broken"
		return nil // rotation itself succeeded but chain is broken
	}
	sentinel.EntryHash = sentinelHash

	data, err := json.Marshal(sentinel)
	if err != nil {
		log.Error("rotation sentinel marshal failed, hash chain broken", "error", err)
		l.dropped.Add(1)
		l.prevHash = "chain-broken"
		return nil
	}
	data = append(data, '\n')

	n, writeErr := l.file.Write(data)
	if writeErr != nil {
		log.Error("rotation sentinel write failed, hash chain broken", "error", writeErr)
		l.dropped.Add(1)
		l.prevHash = "chain-broken"
		return nil
	}
	l.written += int64(n)
	l.prevHash = sentinel.EntryHash

	return nil
}

func (l *Logger) backupName(index int) string {
	if index == 0 {
		return l.filePath
	}
	return fmt.Sprintf("%s.%d", l.filePath, index)
}

// lastHash returns the hash of the last entry in an existing journal, or
// Genesis when there is none.
func lastHash(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return Genesis, nil
	}
	if err != nil {
		return "", fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	last := Genesis
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return "", fmt.Errorf("read audit log: %w", err)
		}
		last = e.EntryHash
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read audit log: %w", err)
	}
	return last, nil
}

// ChainError reports the first entry whose hash or link does not match.
type ChainError struct {
	Line   int
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("audit chain broken at line %d: %s", e.Line, e.Reason)
}

// Verify checks the hash chain of one journal file and returns the number of
// entries read. The first entry may link to anything, since a rotated file
// starts with a sentinel pointing into its predecessor.
func Verify(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	n := 0
	prev := ""
	for sc.Scan() {
		n++
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return n, &ChainError{Line: n, Reason: err.Error()}
		}
		if n > 1 && e.PrevHash != prev {
			return n, &ChainError{Line: n, Reason: "previous hash mismatch"}
		}
		want := e.EntryHash
		e.EntryHash = ""
		got, err := computeHash(e)
		if err != nil {
			return n, &ChainError{Line: n, Reason: err.Error()}
		}
		if got != want {
			return n, &ChainError{Line: n, Reason: "entry hash mismatch"}
		}
		prev = want
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read audit log: %w", err)
	}
	return n, nil
}
