package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

func openTestStore(t *testing.T, driver string) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "id_sent.json")
	if driver == "sqlite" {
		path = filepath.Join(dir, "relay.db")
	}
	st, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, path
}

func TestSetOrderAndMembership(t *testing.T) {
	t.Parallel()
	s := NewSet("b", "a", "b")
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if !s.Add("c") || s.Add("a") {
		t.Fatal("unexpected Add result")
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Fatalf("IDs = %v", got)
	}
	if !s.Remove("a") || s.Remove("a") {
		t.Fatal("unexpected Remove result")
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("IDs after remove = %v", got)
	}
	var nilSet *Set
	if nilSet.Has("x") || nilSet.Len() != 0 {
		t.Fatal("nil set should be empty")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			st, path := openTestStore(t, driver)

			set, err := st.Load(ctx)
			if err != nil {
				t.Fatalf("Load (cold): %v", err)
			}
			if set.Len() != 0 {
				t.Fatalf("cold start set len = %d", set.Len())
			}

			for _, id := range []string{"id-3", "id-1", "id-2"} {
				if err := st.MarkAndPersist(ctx, set, id); err != nil {
					t.Fatalf("MarkAndPersist(%s): %v", id, err)
				}
			}
			// Marking again is idempotent.
			if err := st.MarkAndPersist(ctx, set, "id-1"); err != nil {
				t.Fatalf("MarkAndPersist dup: %v", err)
			}
			_ = st.Close()

			st2, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer st2.Close()
			got, err := st2.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			want := []string{"id-3", "id-1", "id-2"}
			if !reflect.DeepEqual(got.IDs(), want) {
				t.Fatalf("reloaded IDs = %v, want %v", got.IDs(), want)
			}

			ok, err := st2.Forget(ctx, "id-1")
			if err != nil || !ok {
				t.Fatalf("Forget = %v, %v", ok, err)
			}
			if ok, _ := st2.Forget(ctx, "missing"); ok {
				t.Fatal("Forget(missing) = true")
			}
			got, err = st2.Load(ctx)
			if err != nil {
				t.Fatalf("Load after forget: %v", err)
			}
			if !reflect.DeepEqual(got.IDs(), []string{"id-3", "id-2"}) {
				t.Fatalf("IDs after forget = %v", got.IDs())
			}
		})
	}
}

func TestFileStoreLegacyFormat(t *testing.T) {
	ctx := context.Background()
	st, path := openTestStore(t, "file")

	legacy := "[\n    \"a\",\n    \"b\"\n]"
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}
	set, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := st.MarkAndPersist(ctx, set, "c"); err != nil {
		t.Fatalf("MarkAndPersist: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "[\n    \"a\",\n    \"b\",\n    \"c\"\n]"
	if string(b) != want {
		t.Fatalf("file = %q, want %q", b, want)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestFileStoreCorruptIsError(t *testing.T) {
	st, path := openTestStore(t, "file")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Load(context.Background()); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

func TestFileStoreClosed(t *testing.T) {
	st, _ := openTestStore(t, "file")
	_ = st.Close()
	if _, err := st.Load(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Load after Close err = %v, want ErrClosed", err)
	}
	if err := st.MarkAndPersist(context.Background(), NewSet(), "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("MarkAndPersist after Close err = %v, want ErrClosed", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(Config{Driver: "sqlite"}, logx.Nop()); err == nil {
		t.Fatal("expected error for sqlite without path")
	}
}
