package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// FileWriter appends records to a JSONL file.
type FileWriter struct {
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating delivery log: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &FileWriter{file: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (f *FileWriter) WriteRecord(r Record) error {
	return f.enc.Encode(r)
}

// Close flushes buffered records and closes the file.
func (f *FileWriter) Close() error {
	err := f.buf.Flush()
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	return err
}
