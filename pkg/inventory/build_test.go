package inventory

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/flatsync/flatsync/pkg/filesystem"
	"github.com/flatsync/flatsync/pkg/logging"
)

// testingWriteFiles populates root with the specified files.
func testingWriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0600); err != nil {
			t.Fatal("unable to write test file:", err)
		}
	}
}

// testingSorted returns a copy of inventory sorted by name.
func testingSorted(inventory Inventory) Inventory {
	result := append(Inventory(nil), inventory...)
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// TestBuild tests that Build reports regular files with their digests.
func TestBuild(t *testing.T) {
	logger := logging.NewLogger(logging.LevelError, &bytes.Buffer{})
	root := t.TempDir()
	large := strings.Repeat("0123456789", 10000)
	testingWriteFiles(t, root, map[string]string{
		"a.txt":     "hello",
		"b.txt":     "world",
		"empty":     "",
		"large.bin": large,
	})

	inventory, err := Build(context.Background(), root, logger)
	if err != nil {
		t.Fatal("unable to build inventory:", err)
	}

	expected := Inventory{
		{Name: "a.txt", Digest: DigestBytes([]byte("hello"))},
		{Name: "b.txt", Digest: DigestBytes([]byte("world"))},
		{Name: "empty", Digest: DigestBytes(nil)},
		{Name: "large.bin", Digest: DigestBytes([]byte(large))},
	}
	if diff := cmp.Diff(expected, testingSorted(inventory)); diff != "" {
		t.Error("inventory mismatch (-expected +actual):\n", diff)
	}
}

// TestBuildExcludesNonRegular tests that directories, symbolic links, and
// temporary files are excluded.
func TestBuildExcludesNonRegular(t *testing.T) {
	logger := logging.NewLogger(logging.LevelError, &bytes.Buffer{})
	root := t.TempDir()
	testingWriteFiles(t, root, map[string]string{
		"file": "content",
		filesystem.TemporaryNamePrefix + "partial": "partial",
	})
	if err := os.Mkdir(filepath.Join(root, "directory"), 0700); err != nil {
		t.Fatal("unable to create directory:", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Symlink("file", filepath.Join(root, "link")); err != nil {
			t.Fatal("unable to create symbolic link:", err)
		}
	}

	inventory, err := Build(context.Background(), root, logger)
	if err != nil {
		t.Fatal("unable to build inventory:", err)
	}
	if diff := cmp.Diff([]string{"file"}, inventory.Names()); diff != "" {
		t.Error("unexpected names (-expected +actual):\n", diff)
	}
}

// TestBuildMissingRoot tests that an unreadable root yields a ScanError.
func TestBuildMissingRoot(t *testing.T) {
	logger := logging.NewLogger(logging.LevelError, &bytes.Buffer{})
	_, err := Build(context.Background(), filepath.Join(t.TempDir(), "missing"), logger)
	if !errors.Is(err, ErrScan) {
		t.Fatal("expected scan error, got:", err)
	}
	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		t.Fatal("error is not a *ScanError")
	}
	if !os.IsNotExist(scanErr.Err) {
		t.Error("scan error does not wrap non-existence:", scanErr.Err)
	}
}

// TestBuildCancelled tests that a cancelled context aborts the scan.
func TestBuildCancelled(t *testing.T) {
	logger := logging.NewLogger(logging.LevelError, &bytes.Buffer{})
	root := t.TempDir()
	testingWriteFiles(t, root, map[string]string{"file": "content"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, root, logger); !errors.Is(err, context.Canceled) {
		t.Error("expected cancellation error, got:", err)
	}
}

// testingLookup returns the first record in inventory with the specified
// name.
func testingLookup(inventory Inventory, name string) (FileRecord, bool) {
	for _, record := range inventory {
		if record.Name == name {
			return record, true
		}
	}
	return FileRecord{}, false
}
