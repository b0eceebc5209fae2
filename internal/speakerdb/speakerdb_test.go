package speakerdb_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
	"github.com/nguyentantai21042004/meeting-flow/internal/speakerdb"
)

func newTestDB(t *testing.T) *speakerdb.DB {
	t.Helper()
	return speakerdb.Open(filepath.Join(t.TempDir(), "db", "speakers.msgpack"), logger.NewNop())
}

func TestOpenMissingFile(t *testing.T) {
	db := newTestDB(t)
	if db.Count() != 0 {
		t.Errorf("Count() = %d, want 0", db.Count())
	}
	if db.Load() {
		t.Error("Load() = true for a missing file")
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speakers.msgpack")
	if err := os.WriteFile(path, []byte{0xc1, 0xff, 0x00}, 0644); err != nil {
		t.Fatal(err)
	}

	db := speakerdb.Open(path, logger.NewNop())
	if db.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after corrupt load", db.Count())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := newTestDB(t)
	want := map[string]speakerdb.Embedding{
		"alice": {0.1, 0.2, 0.3},
		"bob":   {-1.5, 0, 2.25},
	}
	db.AddSpeakers(want)

	if !db.Save() {
		t.Fatal("Save() = false")
	}

	reopened := speakerdb.Open(db.Path(), logger.NewNop())
	got := reopened.All()
	if len(got) != len(want) {
		t.Fatalf("All() has %d speakers, want %d", len(got), len(want))
	}
	for name, w := range want {
		g, ok := got[name]
		if !ok {
			t.Fatalf("speaker %q missing after reload", name)
		}
		for i := range w {
			if math.Abs(float64(g[i]-w[i])) > 1e-6 {
				t.Errorf("%s[%d] = %v, want %v", name, i, g[i], w[i])
			}
		}
	}
}

func TestSaveFailureKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	db := speakerdb.Open(filepath.Join(dir, "gone", "speakers.msgpack"), logger.NewNop())
	db.AddSpeaker("alice", speakerdb.Embedding{1, 2})

	if err := os.RemoveAll(filepath.Join(dir, "gone")); err != nil {
		t.Fatal(err)
	}

	if db.Save() {
		t.Fatal("Save() = true with a missing directory")
	}
	if !db.HasSpeaker("alice") {
		t.Error("in-memory state lost after failed Save()")
	}
}

func TestAddGetRemove(t *testing.T) {
	db := newTestDB(t)

	emb := speakerdb.Embedding{1, 2, 3}
	db.AddSpeaker("alice", emb)
	emb[0] = 99

	got, ok := db.GetSpeaker("alice")
	if !ok {
		t.Fatal("GetSpeaker() missing alice")
	}
	if got[0] != 1 {
		t.Errorf("stored embedding aliased caller slice: %v", got)
	}

	db.AddSpeaker("alice", speakerdb.Embedding{4, 5})
	got, _ = db.GetSpeaker("alice")
	if !reflect.DeepEqual(got, speakerdb.Embedding{4, 5}) {
		t.Errorf("upsert did not overwrite: %v", got)
	}

	if _, ok := db.GetSpeaker("nobody"); ok {
		t.Error("GetSpeaker() found an absent name")
	}
	if db.RemoveSpeaker("nobody") {
		t.Error("RemoveSpeaker() = true for absent name")
	}
	if !db.RemoveSpeaker("alice") {
		t.Error("RemoveSpeaker() = false for alice")
	}
	if db.HasSpeaker("alice") || db.Count() != 0 {
		t.Error("alice still present after removal")
	}
}

func TestRenameSpeaker(t *testing.T) {
	db := newTestDB(t)
	db.AddSpeaker("alice", speakerdb.Embedding{1})
	db.AddSpeaker("bob", speakerdb.Embedding{2})

	ok, err := db.RenameSpeaker("carol", "dave")
	if ok || err != nil {
		t.Errorf("RenameSpeaker(absent) = %v, %v; want false, nil", ok, err)
	}

	_, err = db.RenameSpeaker("alice", "bob")
	if !errors.Is(err, speakerdb.ErrDuplicateName) {
		t.Fatalf("RenameSpeaker(collision) error = %v, want ErrDuplicateName", err)
	}
	var dup *speakerdb.DuplicateNameError
	if !errors.As(err, &dup) || dup.Name != "bob" {
		t.Errorf("error = %#v, want DuplicateNameError{bob}", err)
	}

	ok, err = db.RenameSpeaker("alice", "alicia")
	if !ok || err != nil {
		t.Fatalf("RenameSpeaker() = %v, %v", ok, err)
	}
	if db.HasSpeaker("alice") {
		t.Error("old name still present")
	}
	if emb, _ := db.GetSpeaker("alicia"); len(emb) != 1 || emb[0] != 1 {
		t.Errorf("embedding not preserved across rename: %v", emb)
	}
}

func TestListClearDelete(t *testing.T) {
	db := newTestDB(t)
	db.AddSpeaker("carol", speakerdb.Embedding{1})
	db.AddSpeaker("alice", speakerdb.Embedding{1})
	db.AddSpeaker("bob", speakerdb.Embedding{1})

	if got := db.ListSpeakers(); !reflect.DeepEqual(got, []string{"alice", "bob", "carol"}) {
		t.Errorf("ListSpeakers() = %v", got)
	}

	if !db.Save() {
		t.Fatal("Save() = false")
	}
	db.Clear()
	if db.Count() != 0 {
		t.Errorf("Count() = %d after Clear()", db.Count())
	}
	if !db.DeleteFile() {
		t.Error("DeleteFile() = false with an existing file")
	}
	if db.DeleteFile() {
		t.Error("DeleteFile() = true with no file")
	}
	if _, err := os.Stat(db.Path()); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
}
