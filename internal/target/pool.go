package target

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// PoolReader collects target identifiers from files or stdin
type PoolReader struct {
	ids []string
}

// NewPoolReader creates a new pool reader
func NewPoolReader() *PoolReader {
	return &PoolReader{
		ids: make([]string, 0),
	}
}

// ReadFile reads identifiers from a file, one per line. A path of "-" reads stdin.
func (r *PoolReader) ReadFile(filename string) error {
	if filename == "-" {
		return r.ReadFromStdin()
	}

	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open targets file: %w", err)
	}
	defer file.Close()

	return r.Read(file)
}

// ReadFromStdin reads identifiers from stdin
func (r *PoolReader) ReadFromStdin() error {
	return r.Read(os.Stdin)
}

// Read reads identifiers from any io.Reader, skipping blank lines and # comments
func (r *PoolReader) Read(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			r.ids = append(r.ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading targets: %w", err)
	}

	return nil
}

// IDs returns all collected identifiers
func (r *PoolReader) IDs() []string {
	return r.ids
}

// Count returns the number of identifiers
func (r *PoolReader) Count() int {
	return len(r.ids)
}
