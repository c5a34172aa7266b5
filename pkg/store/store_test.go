package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	opts.CreateIfMissing = true
	if opts.PageSize == 0 {
		opts.PageSize = 4096
	}
	s, err := Open(path, opts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGetDelete(t *testing.T) {
	s := openTestStore(t, Options{})

	if err := s.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	v, err := s.Get([]byte("a"))
	if err != nil || string(v) != "1" {
		t.Fatalf("Get(a) = %q, %v, want 1, nil", v, err)
	}

	if err := s.Delete([]byte("a")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get([]byte("a")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrKeyNotFound", err)
	}
}

func TestStore_GetMissingKey(t *testing.T) {
	s := openTestStore(t, Options{})
	if _, err := s.Get([]byte("nope")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestStore_DeleteMissingKey(t *testing.T) {
	s := openTestStore(t, Options{})
	if err := s.Delete([]byte("nope")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Delete() error = %v, want ErrKeyNotFound", err)
	}
}

func TestStore_ReopenSeesCommittedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := Open(path, Options{PageSize: 4096, CreateIfMissing: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put([]byte("durable"), []byte("yes")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	v, err := reopened.Get([]byte("durable"))
	if err != nil || string(v) != "yes" {
		t.Fatalf("Get() after reopen = %q, %v, want yes, nil", v, err)
	}
}

func TestStore_ScanOrdered(t *testing.T) {
	s := openTestStore(t, Options{})
	keys := []string{"c", "a", "b"}
	for _, k := range keys {
		if err := s.Put([]byte(k), []byte(k)); err != nil {
			t.Fatal(err)
		}
	}

	cur, err := s.Scan(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for {
		k, _, ok, err := cur.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got = append(got, string(k))
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Scan() returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Scan()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStore_ReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.db")
	s, err := Open(path, Options{PageSize: 4096, CreateIfMissing: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	ro, err := Open(path, Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("Open() read-only error = %v", err)
	}
	defer ro.Close()

	if err := ro.Put([]byte("b"), []byte("2")); err == nil {
		t.Fatal("expected Put() on read-only store to fail")
	}
	v, err := ro.Get([]byte("a"))
	if err != nil || string(v) != "1" {
		t.Fatalf("Get() on read-only store = %q, %v, want 1, nil", v, err)
	}
}
