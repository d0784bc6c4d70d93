package storage

import (
	"io"
	"strings"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key, err := s.Put("exports/backup.json", strings.NewReader(`{"workbooks":[]}`))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	rc, err := s.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"workbooks":[]}` {
		t.Fatalf("data = %s", data)
	}
}

func TestPutRejectsEmptyKey(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := s.Put("", strings.NewReader("x")); err == nil {
		t.Fatal("empty key must be rejected")
	}
}

func TestPutExportKeysUnderExports(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key, err := s.PutExport(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("put export: %v", err)
	}
	if !strings.HasPrefix(key, "exports/") || !strings.HasSuffix(key, ".json") {
		t.Fatalf("key = %s", key)
	}
	rc, err := s.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	rc.Close()
}

func TestGetMissingKey(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := s.Get("exports/nope.json"); err == nil {
		t.Fatal("missing key must error")
	}
}
