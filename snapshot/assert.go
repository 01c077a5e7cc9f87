package snapshot

import "testing"

// Assert checks result against the book and reports through t. New
// snapshots are logged, mismatches fail the test.
func Assert(t testing.TB, b *Book, should string, result any) {
	t.Helper()
	out, err := b.Check(should, result)
	if err != nil {
		t.Fatalf("%v", err)
	}
	switch out.Status {
	case StatusNew:
		t.Logf("new snapshot recorded in %s: %s", b.Path(), should)
	case StatusFail:
		t.Errorf("snapshot %q mismatch (-want +got):\n%s", should, out.Diff)
	}
}

// OpenT opens a book for a test and saves any new snapshots when the test
// finishes without failing.
func OpenT(t testing.TB, dir, id string) *Book {
	t.Helper()
	b, err := Open(dir, id)
	if err != nil {
		t.Fatalf("%v", err)
	}
	t.Cleanup(func() {
		if t.Failed() {
			return
		}
		if err := b.Save(); err != nil {
			t.Errorf("%v", err)
		}
	})
	return b
}
