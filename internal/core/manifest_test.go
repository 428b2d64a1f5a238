package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestManifestRecordAndLookup(t *testing.T) {
	m := NewManifest(DuplicateFail)

	if err := m.Record("css/site.css", "css/site-0123456789.css"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, ok := m.Lookup("css/site.css")
	if !ok || got != "css/site-0123456789.css" {
		t.Errorf("Lookup() = %q, %v", got, ok)
	}

	if _, ok := m.Lookup("css/missing.css"); ok {
		t.Error("Lookup() found an entry that was never recorded")
	}
}

func TestManifestDuplicatePolicy(t *testing.T) {
	t.Run("fail rejects duplicates", func(t *testing.T) {
		m := NewManifest(DuplicateFail)
		if err := m.Record("a.css", "a-0123456789.css"); err != nil {
			t.Fatalf("Record() error = %v", err)
		}

		err := m.Record("a.css", "a-abcdef0123.css")
		if !errors.Is(err, ErrDuplicateLogicalName) {
			t.Fatalf("Record() error = %v, want ErrDuplicateLogicalName", err)
		}

		got, _ := m.Lookup("a.css")
		if got != "a-0123456789.css" {
			t.Errorf("first entry was replaced: %q", got)
		}
	})

	t.Run("overwrite keeps last", func(t *testing.T) {
		m := NewManifest(DuplicateOverwrite)
		_ = m.Record("a.css", "a-0123456789.css")
		if err := m.Record("a.css", "a-abcdef0123.css"); err != nil {
			t.Fatalf("Record() error = %v", err)
		}

		got, _ := m.Lookup("a.css")
		if got != "a-abcdef0123.css" {
			t.Errorf("Lookup() = %q, want overwritten entry", got)
		}
	})

	t.Run("empty policy defaults to fail", func(t *testing.T) {
		m := NewManifest("")
		_ = m.Record("a.css", "x")
		if err := m.Record("a.css", "y"); err == nil {
			t.Error("expected duplicate error")
		}
	})
}

func TestParseDuplicatePolicy(t *testing.T) {
	for _, in := range []string{"", "fail", "overwrite"} {
		if _, err := ParseDuplicatePolicy(in); err != nil {
			t.Errorf("ParseDuplicatePolicy(%q) error = %v", in, err)
		}
	}
	if _, err := ParseDuplicatePolicy("ignore"); err == nil {
		t.Error("ParseDuplicatePolicy(ignore) expected error")
	}
}

func TestManifestConcurrentRecord(t *testing.T) {
	m := NewManifest(DuplicateFail)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logical := fmt.Sprintf("js/m%02d.js", i)
			if err := m.Record(logical, logical+".out"); err != nil {
				t.Errorf("Record(%s) error = %v", logical, err)
			}
		}(i)
	}
	wg.Wait()

	if m.Len() != 64 {
		t.Fatalf("Len() = %d, want 64", m.Len())
	}

	entries := m.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Logical >= entries[i].Logical {
			t.Fatalf("Entries() not sorted at %d: %q >= %q", i, entries[i-1].Logical, entries[i].Logical)
		}
	}
}

func TestManifestMarshalDeterministic(t *testing.T) {
	build := func(order []string) []byte {
		m := NewManifest(DuplicateFail)
		for _, name := range order {
			_ = m.Record(name, "out/"+name)
		}
		data, err := m.Marshal()
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		return data
	}

	a := build([]string{"b.css", "a.js", "c.css"})
	b := build([]string{"c.css", "b.css", "a.js"})
	if string(a) != string(b) {
		t.Errorf("Marshal() depends on insertion order:\n%s\n%s", a, b)
	}

	want := "{\n  \"a.js\": \"out/a.js\",\n  \"b.css\": \"out/b.css\",\n  \"c.css\": \"out/c.css\"\n}\n"
	if string(a) != want {
		t.Errorf("Marshal() = %q, want %q", a, want)
	}
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`{"site.css": "site-0123456789.css"}`))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	if got, _ := m.Lookup("site.css"); got != "site-0123456789.css" {
		t.Errorf("Lookup() = %q", got)
	}

	empty, err := ParseManifest([]byte(`null`))
	if err != nil {
		t.Fatalf("ParseManifest(null) error = %v", err)
	}
	if err := empty.Record("x.css", "y.css"); err != nil {
		t.Errorf("Record() on parsed null manifest error = %v", err)
	}

	if _, err := ParseManifest([]byte(`["not", "an", "object"]`)); err == nil {
		t.Error("ParseManifest() expected error for array input")
	}
}
