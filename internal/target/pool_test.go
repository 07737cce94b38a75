package target

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPoolReaderRead(t *testing.T) {
	input := `b563feb7b2b84b6329608
b563feb7b2b84b6127191
# retired order
b563feb7b2b84b6561978

   b563feb7b2b84b6102309	`

	reader := NewPoolReader()
	if err := reader.Read(strings.NewReader(input)); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	expected := []string{
		"b563feb7b2b84b6329608",
		"b563feb7b2b84b6127191",
		"b563feb7b2b84b6561978",
		"b563feb7b2b84b6102309",
	}

	ids := reader.IDs()
	if len(ids) != len(expected) {
		t.Fatalf("Expected %d ids, got %d", len(expected), len(ids))
	}

	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("id %d: expected %s, got %s", i, expected[i], id)
		}
	}
}

func TestPoolReaderReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.txt")
	content := "# orders\nuid-1\nuid-2\n\nuid-3\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write targets file: %v", err)
	}

	reader := NewPoolReader()
	if err := reader.ReadFile(path); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if reader.Count() != 3 {
		t.Errorf("Expected 3 ids, got %d", reader.Count())
	}
}

func TestPoolReaderReadFileNotFound(t *testing.T) {
	reader := NewPoolReader()

	if err := reader.ReadFile("/nonexistent/targets.txt"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestPoolReaderOnlyComments(t *testing.T) {
	reader := NewPoolReader()
	if err := reader.Read(strings.NewReader("# a\n## b\n\n")); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if reader.Count() != 0 {
		t.Errorf("Expected empty pool, got %d ids", reader.Count())
	}
}
