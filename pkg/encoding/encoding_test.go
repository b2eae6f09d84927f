package encoding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

// testMessageYAML is a test structure to use for encoding tests using YAML.
type testMessageYAML struct {
	Section struct {
		Name string `yaml:"name"`
		Age  uint   `yaml:"age"`
	} `yaml:"section"`
}

// testingWrite writes data to a file in a temporary directory.
func testingWrite(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yml")
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal("unable to write test file:", err)
	}
	return path
}

// TestLoadAndUnmarshalNonExistentPath tests that non-existence errors are
// passed through.
func TestLoadAndUnmarshalNonExistentPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")
	if !os.IsNotExist(LoadAndUnmarshal(path, nil)) {
		t.Error("expected LoadAndUnmarshal to pass through non-existence errors")
	}
}

// TestLoadAndUnmarshalUnmarshalFail tests that unmarshaling failures are
// reported.
func TestLoadAndUnmarshalUnmarshalFail(t *testing.T) {
	path := testingWrite(t, "")
	unmarshal := func(_ []byte) error {
		return errors.New("unmarshal failed")
	}
	if LoadAndUnmarshal(path, unmarshal) == nil {
		t.Error("expected LoadAndUnmarshal to return an error")
	}
}

// TestLoadAndUnmarshalYAML tests that loading and unmarshaling YAML data
// succeeds.
func TestLoadAndUnmarshalYAML(t *testing.T) {
	path := testingWrite(t, "section:\n  name: \"Abraham\"\n  age: 56\n")
	value := &testMessageYAML{}
	if err := LoadAndUnmarshalYAML(path, value); err != nil {
		t.Fatal("LoadAndUnmarshalYAML failed:", err)
	}
	if value.Section.Name != "Abraham" || value.Section.Age != 56 {
		t.Errorf("unexpected decoded value: %+v", value)
	}
}

// TestLoadAndUnmarshalYAMLUnknownField tests that unknown fields are
// rejected.
func TestLoadAndUnmarshalYAMLUnknownField(t *testing.T) {
	path := testingWrite(t, "section:\n  nickname: \"Abe\"\n")
	if err := LoadAndUnmarshalYAML(path, &testMessageYAML{}); err == nil {
		t.Error("expected unknown field to be rejected")
	}
}

// TestLoadAndUnmarshalYAMLEmpty tests that empty files are accepted.
func TestLoadAndUnmarshalYAMLEmpty(t *testing.T) {
	path := testingWrite(t, "")
	if err := LoadAndUnmarshalYAML(path, &testMessageYAML{}); err != nil {
		t.Error("empty file rejected:", err)
	}
}
