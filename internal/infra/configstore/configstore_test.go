package configstore

import (
	"bytes"
	"testing"
)

func TestGetMissingKey(t *testing.T) {
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	_, ok, err := store.Get("kanban_config")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing key")
	}
}

func TestSetOverwritesSnapshot(t *testing.T) {
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if err := store.Set("kanban_config", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set("kanban_config", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := store.Get("kanban_config")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected key to exist")
	}
	if !bytes.Equal(got, []byte(`{"v":2}`)) {
		t.Fatalf("got %s, want last written snapshot", got)
	}
}
