// Package snapshot records JSON snapshots of test results in a file and
// compares later runs against them. The first time a description is seen its
// result is recorded; afterwards any difference is reported with a diff.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/google/go-cmp/cmp"
)

// Status is the result of checking one snapshot
type Status int

const (
	StatusPass Status = iota
	StatusFail
	StatusNew
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "FAIL"
	case StatusNew:
		return "new"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Outcome describes one Check call
type Outcome struct {
	Should string
	Status Status
	Diff   string // -want +got, only set on StatusFail
}

// Book is the set of snapshots stored in one file
type Book struct {
	id        string
	path      string
	snapshots map[string]json.RawMessage
	outcomes  []Outcome
	dirty     bool
}

// Open loads <dir>/<id>.json, starting empty if it does not exist yet
func Open(dir, id string) (*Book, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("snapshot: a stable, unique id is required")
	}
	b := &Book{
		id:        id,
		path:      filepath.Join(dir, id+".json"),
		snapshots: make(map[string]json.RawMessage),
	}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", b.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return b, nil
	}
	if err := json.Unmarshal(data, &b.snapshots); err != nil {
		return nil, fmt.Errorf("snapshot: parse %s: %w", b.path, err)
	}
	return b, nil
}

// ID returns the book id
func (b *Book) ID() string { return b.id }

// Path returns the backing file path
func (b *Book) Path() string { return b.path }

// Check compares result against the snapshot stored under should, recording
// it if there is none. Values are compared after a JSON round trip, so any
// JSON-marshalable value works.
func (b *Book) Check(should string, result any) (Outcome, error) {
	if result == nil {
		return Outcome{}, fmt.Errorf("snapshot: %q: result must not be nil", should)
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return Outcome{}, fmt.Errorf("snapshot: %q: %w", should, err)
	}
	var got any
	if err := json.Unmarshal(raw, &got); err != nil {
		return Outcome{}, fmt.Errorf("snapshot: %q: %w", should, err)
	}

	out := Outcome{Should: should}
	prev, ok := b.snapshots[should]
	if !ok {
		b.snapshots[should] = raw
		b.dirty = true
		out.Status = StatusNew
		b.outcomes = append(b.outcomes, out)
		return out, nil
	}

	var want any
	if err := json.Unmarshal(prev, &want); err != nil {
		return Outcome{}, fmt.Errorf("snapshot: %q: stored value: %w", should, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		out.Status = StatusFail
		out.Diff = diff
	}
	b.outcomes = append(b.outcomes, out)
	return out, nil
}

// Outcomes returns every Check result so far, in call order
func (b *Book) Outcomes() []Outcome {
	return append([]Outcome(nil), b.outcomes...)
}

// Save writes the book back if new snapshots were recorded
func (b *Book) Save() error {
	if !b.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	data, err := json.MarshalIndent(b.snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := os.WriteFile(b.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	b.dirty = false
	return nil
}

// Report prints a table of outcomes, new snapshots and failure diffs
func (b *Book) Report(w io.Writer) error {
	fmt.Fprintf(w, "\n%s\n\n", b.id)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RESULT\tSHOULD")
	passed := 0
	var failed []Outcome
	var recorded []string
	for _, o := range b.outcomes {
		fmt.Fprintf(tw, "%s\t%s\n", o.Status, o.Should)
		switch o.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed = append(failed, o)
		case StatusNew:
			recorded = append(recorded, o.Should)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	sort.Strings(recorded)
	for _, should := range recorded {
		fmt.Fprintf(w, "\nNew snapshot: %s\n%s\n", should, b.snapshots[should])
	}
	for _, o := range failed {
		fmt.Fprintf(w, "\nFailed: %s (-want +got)\n%s", o.Should, o.Diff)
	}
	_, err := fmt.Fprintf(w, "\n%d / %d passed\n", passed, len(b.outcomes))
	return err
}
