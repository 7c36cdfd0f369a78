package peer

import (
	"fmt"
	"os"
	"path/filepath"
)

// ByteSource supplies the entire payload a sender stream fragments.
type ByteSource interface {
	Read() ([]byte, error)
}

// ByteSink optionally persists a received stream's reassembled bytes.
// Persistence is not required by the protocol.
type ByteSink interface {
	Write(data []byte) error
}

// FileByteSource reads files_to_send/file_<i> whole into memory.
type FileByteSource struct {
	Path string
}

func (f FileByteSource) Read() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("peer: reading %s: %w", f.Path, err)
	}
	return data, nil
}

// FileByteSink persists a received stream's data to
// files_received/temp_stream_<id>.
type FileByteSink struct {
	Path string
}

func (f FileByteSink) Write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("peer: creating directory for %s: %w", f.Path, err)
	}
	if err := os.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("peer: writing %s: %w", f.Path, err)
	}
	return nil
}

// SourceFilePath returns the pre-staged source path for sender stream
// i, matching files_to_send/file_<i>.
func SourceFilePath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("file_%d", i))
}

// SinkFilePath returns the persisted path for receiver stream id,
// matching files_received/temp_stream_<id>.
func SinkFilePath(dir string, id uint32) string {
	return filepath.Join(dir, fmt.Sprintf("temp_stream_%d", id))
}

// MemoryByteSource is an in-memory ByteSource, used by tests in place
// of a pre-staged file.
type MemoryByteSource struct {
	Data []byte
}

func (m MemoryByteSource) Read() ([]byte, error) { return m.Data, nil }

// MemoryByteSink is an in-memory ByteSink, used by tests.
type MemoryByteSink struct {
	Data []byte
}

func (m *MemoryByteSink) Write(data []byte) error {
	m.Data = append([]byte(nil), data...)
	return nil
}
