// Package store provides the persistence implementations behind the
// session.Store repository interface: a filesystem store laying out one
// directory per mission, and an in-memory store for tests.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"arena/internal/board"
	"arena/internal/session"
)

const (
	sessionFile  = "session.json"
	transcript   = "transcript.jsonl"
	decisionLog  = "decision-log.jsonl"
	boardFile    = "task-board.json"
	budgetReport = "budget-report.json"
)

// FileStore persists sessions under root, one directory per session id:
//
//	<root>/<id>/session.json        rewritten on every turn/status update
//	<root>/<id>/transcript.jsonl    append-only, one message per line
//	<root>/<id>/decision-log.jsonl  append-only, one decision per line
//	<root>/<id>/task-board.json     full board snapshot
//	<root>/<id>/budget-report.json  latest budget entries
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating store root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (fs *FileStore) dir(id string) string {
	return filepath.Join(fs.root, id)
}

// Create makes the session directory and writes the initial record.
func (fs *FileStore) Create(s *session.Session) error {
	if err := os.MkdirAll(fs.dir(s.ID), 0o755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	return fs.Save(s)
}

// Save rewrites session.json.
func (fs *FileStore) Save(s *session.Session) error {
	return fs.writeJSON(s.ID, sessionFile, s)
}

// Get loads session.json, or session.ErrNotFound.
func (fs *FileStore) Get(id string) (*session.Session, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir(id), sessionFile))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%q: %w", id, session.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	return &s, nil
}

// List loads every session record under root, oldest first.
func (fs *FileStore) List() ([]*session.Session, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return nil, fmt.Errorf("reading store root: %w", err)
	}
	var out []*session.Session
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s, err := fs.Get(e.Name())
		if err != nil {
			// Stray directories without a session record are skipped.
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AppendMessage appends one JSON line to transcript.jsonl.
func (fs *FileStore) AppendMessage(id string, m session.Message) error {
	return fs.appendLine(id, transcript, m)
}

// Transcript reads all messages in write order.
func (fs *FileStore) Transcript(id string) ([]session.Message, error) {
	var out []session.Message
	err := fs.readLines(id, transcript, func(line []byte) error {
		var m session.Message
		if err := json.Unmarshal(line, &m); err != nil {
			return fmt.Errorf("parsing transcript line: %w", err)
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

// AppendDecision appends one JSON line to decision-log.jsonl.
func (fs *FileStore) AppendDecision(id string, d session.DecisionRecord) error {
	return fs.appendLine(id, decisionLog, d)
}

// Decisions reads the decision log in write order.
func (fs *FileStore) Decisions(id string) ([]session.DecisionRecord, error) {
	var out []session.DecisionRecord
	err := fs.readLines(id, decisionLog, func(line []byte) error {
		var d session.DecisionRecord
		if err := json.Unmarshal(line, &d); err != nil {
			return fmt.Errorf("parsing decision line: %w", err)
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// SaveBoard rewrites task-board.json.
func (fs *FileStore) SaveBoard(id string, snap board.Snapshot) error {
	return fs.writeJSON(id, boardFile, snap)
}

// Board loads task-board.json; an empty snapshot when absent.
func (fs *FileStore) Board(id string) (board.Snapshot, error) {
	var snap board.Snapshot
	data, err := os.ReadFile(filepath.Join(fs.dir(id), boardFile))
	if os.IsNotExist(err) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("reading board: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parsing board: %w", err)
	}
	return snap, nil
}

// SaveBudget rewrites budget-report.json.
func (fs *FileStore) SaveBudget(id string, entries []session.BudgetEntry) error {
	return fs.writeJSON(id, budgetReport, entries)
}

// Budget loads budget-report.json; empty when absent.
func (fs *FileStore) Budget(id string) ([]session.BudgetEntry, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir(id), budgetReport))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading budget report: %w", err)
	}
	var out []session.BudgetEntry
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing budget report: %w", err)
	}
	return out, nil
}

func (fs *FileStore) writeJSON(id, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	path := filepath.Join(fs.dir(id), name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (fs *FileStore) appendLine(id, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s line: %w", name, err)
	}
	path := filepath.Join(fs.dir(id), name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending to %s: %w", name, err)
	}
	return f.Sync()
}

func (fs *FileStore) readLines(id, name string, fn func([]byte) error) error {
	f, err := os.Open(filepath.Join(fs.dir(id), name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	return nil
}
