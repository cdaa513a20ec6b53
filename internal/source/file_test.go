package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
)

func collect(t *testing.T, p Partition) []index.Record {
	t.Helper()
	var recs []index.Record
	err := p.Each(context.Background(), func(rec index.Record) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	return recs
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileSourceRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []index.Record
	}{
		{
			name:    "unix newlines",
			content: "doc1\ta b\nc\n",
			want:    []index.Record{{Offset: 0, Text: "doc1\ta b"}, {Offset: 9, Text: "c"}},
		},
		{
			name:    "windows newlines",
			content: "d\tx\r\ny\r\n",
			want:    []index.Record{{Offset: 0, Text: "d\tx"}, {Offset: 5, Text: "y"}},
		},
		{
			name:    "no trailing newline",
			content: "a\nb",
			want:    []index.Record{{Offset: 0, Text: "a"}, {Offset: 2, Text: "b"}},
		},
		{
			name:    "blank lines kept",
			content: "a\n\nb\n",
			want:    []index.Record{{Offset: 0, Text: "a"}, {Offset: 2, Text: ""}, {Offset: 3, Text: "b"}},
		},
		{
			name:    "empty file",
			content: "",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "input.txt", tt.content)
			parts, err := NewFileSource(path, 0).Partitions(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if len(parts) != 1 {
				t.Fatalf("got %d partitions, want 1", len(parts))
			}
			if got := collect(t, parts[0]); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("records = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFileSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "b\n")
	writeFile(t, dir, "a.txt", "a\n")
	writeFile(t, dir, ".hidden", "h\n")
	writeFile(t, dir, "_SUCCESS", "")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	parts, err := NewFileSource(dir, 0).Partitions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range parts {
		names = append(names, filepath.Base(p.Name()))
	}
	if want := []string{"a.txt", "b.txt"}; !reflect.DeepEqual(names, want) {
		t.Errorf("partitions = %v, want %v", names, want)
	}
}

func TestFileSourceMissing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope"), 0).Partitions(context.Background())
	if !errors.Is(err, apperrors.ErrSourceUnavailable) {
		t.Errorf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestFileSourceLineTooLong(t *testing.T) {
	path := writeFile(t, t.TempDir(), "long.txt", strings.Repeat("x", 200)+"\n")
	parts, err := NewFileSource(path, 64).Partitions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	err = parts[0].Each(context.Background(), func(index.Record) error { return nil })
	if err == nil {
		t.Error("expected error for line longer than the limit")
	}
}

func TestFileSourceStopsOnCallbackError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.txt", "a\nb\nc\n")
	parts, _ := NewFileSource(path, 0).Partitions(context.Background())
	stop := errors.New("stop")
	seen := 0
	err := parts[0].Each(context.Background(), func(index.Record) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) || seen != 1 {
		t.Errorf("err = %v, seen = %d", err, seen)
	}
}

func TestLinesOffsets(t *testing.T) {
	got := collect(t, Lines("p", "ab", "", "cde"))
	want := []index.Record{{Offset: 0, Text: "ab"}, {Offset: 3, Text: ""}, {Offset: 4, Text: "cde"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %+v, want %+v", got, want)
	}
}
