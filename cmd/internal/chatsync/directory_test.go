package chatsync

import (
	"testing"

	v1 "loom/contracts/push/v1"
)

func chat(id int64, name string) v1.Chat {
	n := name
	return v1.Chat{ID: id, Name: &n}
}

func TestDirectoryAddIsIdempotent(t *testing.T) {
	t.Parallel()

	d := NewDirectory(testLogger())

	if !d.Add(chat(1, "a")) {
		t.Fatalf("first add rejected")
	}
	// chat.create racing the directory fetch delivers the same chat twice.
	if d.Add(chat(1, "a")) {
		t.Fatalf("duplicate add accepted")
	}
	if d.Len() != 1 {
		t.Fatalf("len=%d want=1", d.Len())
	}
}

func TestDirectoryUpdateNeverInserts(t *testing.T) {
	t.Parallel()

	d := NewDirectory(testLogger())

	if d.Update(chat(1, "ghost")) {
		t.Fatalf("update of unknown chat reported a change")
	}
	if d.Len() != 0 {
		t.Fatalf("len=%d want=0", d.Len())
	}

	d.Add(chat(1, "old"))
	if !d.Update(chat(1, "new")) {
		t.Fatalf("update of known chat rejected")
	}
	got, ok := d.Get(1)
	if !ok || got.Name == nil || *got.Name != "new" {
		t.Fatalf("get after update: %+v ok=%v", got, ok)
	}
}

func TestDirectorySetAllPreservesOrder(t *testing.T) {
	t.Parallel()

	d := NewDirectory(testLogger())
	d.Add(chat(9, "stale"))

	d.SetAll([]v1.Chat{chat(3, "c"), chat(1, "a"), chat(2, "b")})

	list := d.List()
	want := []int64{3, 1, 2}
	if len(list) != len(want) {
		t.Fatalf("len=%d want=%d", len(list), len(want))
	}
	for i := range want {
		if list[i].ID != want[i] {
			t.Fatalf("order mismatch at %d: got=%d want=%d", i, list[i].ID, want[i])
		}
	}
}
