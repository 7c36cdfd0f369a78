package peer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestFileByteSourceReadsWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file_1")
	want := []byte("some payload bytes")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := (FileByteSource{Path: path}).Read()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Read() = %q, want %q", got, want)
	}
}

func TestFileByteSourceMissingFile(t *testing.T) {
	if _, err := (FileByteSource{Path: "/nonexistent/path/file"}).Read(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFileByteSinkCreatesDirAndWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "temp_stream_3")
	data := []byte("reassembled data")

	if err := (FileByteSink{Path: path}).Write(data); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("file contents = %q, want %q", got, data)
	}
}

func TestMemoryByteSourceAndSink(t *testing.T) {
	src := MemoryByteSource{Data: []byte("abc")}
	got, err := src.Read()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Fatalf("Read() = %q", got)
	}

	var sink MemoryByteSink
	if err := sink.Write([]byte("xyz")); err != nil {
		t.Fatal(err)
	}
	if string(sink.Data) != "xyz" {
		t.Fatalf("sink.Data = %q", sink.Data)
	}
}

func TestSourceAndSinkFilePaths(t *testing.T) {
	if got := SourceFilePath("files_to_send", 3); got != filepath.Join("files_to_send", "file_3") {
		t.Fatalf("SourceFilePath = %q", got)
	}
	if got := SinkFilePath("files_received", 7); got != filepath.Join("files_received", "temp_stream_7") {
		t.Fatalf("SinkFilePath = %q", got)
	}
}
