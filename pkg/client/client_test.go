package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/flatsync/flatsync/pkg/configuration"
	"github.com/flatsync/flatsync/pkg/inventory"
	"github.com/flatsync/flatsync/pkg/logging"
	"github.com/flatsync/flatsync/pkg/protocol"
	"github.com/flatsync/flatsync/pkg/server"
	"github.com/flatsync/flatsync/pkg/transfer"
)

// testingTimeout bounds waits in tests.
const testingTimeout = 10 * time.Second

// testingLogger creates a logger that discards output.
func testingLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelError, &bytes.Buffer{})
}

// testingWriteFiles creates a temporary directory containing files.
func testingWriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0600); err != nil {
			t.Fatal("unable to write file:", err)
		}
	}
	return root
}

// testingReadFiles reads every file in a directory.
func testingReadFiles(t *testing.T, root string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal("unable to read directory:", err)
	}
	result := make(map[string]string, len(entries))
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(root, entry.Name()))
		if err != nil {
			t.Fatal("unable to read file:", err)
		}
		result[entry.Name()] = string(data)
	}
	return result
}

// testingServe starts a server over root and returns its address. The server
// is shut down when the test completes.
func testingServe(t *testing.T, root string, maximumConnections int) string {
	t.Helper()
	s, err := server.New(server.Options{
		Root:               root,
		MaximumConnections: maximumConnections,
		Overflow:           configuration.OverflowReject,
	}, testingLogger())
	if err != nil {
		t.Fatal("unable to create server:", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	listener, err := server.Listen(ctx, "127.0.0.1:0", false)
	if err != nil {
		cancel()
		t.Fatal("unable to listen:", err)
	}
	served := make(chan struct{})
	go func() {
		s.Serve(ctx, listener)
		close(served)
	}()
	t.Cleanup(func() {
		cancel()
		<-served
	})
	return listener.Addr().String()
}

// testingConnect connects a client to address. The client is closed when the
// test completes.
func testingConnect(t *testing.T, address string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testingTimeout)
	defer cancel()
	client, err := Dial(ctx, address, testingLogger())
	if err != nil {
		t.Fatal("unable to connect:", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// testingNames extracts sorted record names.
func testingNames(records []inventory.FileRecord) []string {
	names := inventory.Inventory(records).Names()
	sort.Strings(names)
	return names
}

// TestDiffScenarios tests DIFF end to end over TCP.
func TestDiffScenarios(t *testing.T) {
	tests := []struct {
		description string
		server      map[string]string
		client      map[string]string
		expected    []inventory.FileRecord
	}{
		{
			"missing file",
			map[string]string{"a.txt": "hello", "b.txt": "world"},
			map[string]string{"a.txt": "hello"},
			[]inventory.FileRecord{{Name: "b.txt", Digest: inventory.DigestBytes([]byte("world"))}},
		},
		{
			"stale file",
			map[string]string{"a.txt": "hello"},
			map[string]string{"a.txt": "goodbye"},
			[]inventory.FileRecord{{Name: "a.txt", Digest: inventory.DigestBytes([]byte("hello"))}},
		},
		{
			"identical",
			map[string]string{"a.txt": "hello"},
			map[string]string{"a.txt": "hello"},
			nil,
		},
		{
			"client only",
			map[string]string{},
			map[string]string{"a.txt": "hello"},
			nil,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			client := testingConnect(t, testingServe(t, testingWriteFiles(t, test.server), 1))
			delta, err := client.Diff(context.Background(), testingWriteFiles(t, test.client))
			if err != nil {
				t.Fatal("unable to diff:", err)
			}
			if diff := cmp.Diff(test.expected, delta); diff != "" {
				t.Error("delta mismatch (-expected +actual):\n", diff)
			}
		})
	}
}

// TestDiffPaged tests a DIFF whose inventory and delta span several envelopes.
func TestDiffPaged(t *testing.T) {
	serverFiles := make(map[string]string)
	clientFiles := make(map[string]string)
	for i := 0; i < 3*protocol.RecordsPerEnvelope+7; i++ {
		name := "file" + string(rune('a'+i%26)) + string(rune('a'+i/26)) + ".dat"
		serverFiles[name] = name
		if i%2 == 0 {
			clientFiles[name] = name
		}
	}
	client := testingConnect(t, testingServe(t, testingWriteFiles(t, serverFiles), 1))
	delta, err := client.Diff(context.Background(), testingWriteFiles(t, clientFiles))
	if err != nil {
		t.Fatal("unable to diff:", err)
	}
	var expected []string
	for name := range serverFiles {
		if _, ok := clientFiles[name]; !ok {
			expected = append(expected, name)
		}
	}
	sort.Strings(expected)
	if diff := cmp.Diff(expected, testingNames(delta)); diff != "" {
		t.Error("delta mismatch (-expected +actual):\n", diff)
	}
}

// TestListPullSyncLeave tests a full session.
func TestListPullSyncLeave(t *testing.T) {
	serverFiles := map[string]string{
		"a.txt":  "hello",
		"b.txt":  "world",
		"c.log":  "",
		"d.data": string(bytes.Repeat([]byte("0123456789"), 1000)),
	}
	client := testingConnect(t, testingServe(t, testingWriteFiles(t, serverFiles), 1))
	ctx := context.Background()

	// LIST retrieves everything.
	listed := t.TempDir()
	summary, err := client.List(ctx, listed)
	if err != nil {
		t.Fatal("unable to list:", err)
	} else if len(summary.Files) != len(serverFiles) {
		t.Error("unexpected LIST file count:", len(summary.Files))
	}
	if diff := cmp.Diff(serverFiles, testingReadFiles(t, listed)); diff != "" {
		t.Error("LIST contents mismatch (-expected +actual):\n", diff)
	}

	// PULL retrieves the named files.
	pulled := t.TempDir()
	if _, err := client.Pull(ctx, []string{"a.txt", "c.log", "missing"}, pulled); err != nil {
		t.Fatal("unable to pull:", err)
	}
	expected := map[string]string{"a.txt": "hello", "c.log": ""}
	if diff := cmp.Diff(expected, testingReadFiles(t, pulled)); diff != "" {
		t.Error("PULL contents mismatch (-expected +actual):\n", diff)
	}

	// PULL with patterns retrieves the matching files.
	matched := t.TempDir()
	if _, err := client.PullMatching(ctx, []string{"*.txt", "c.*"}, matched); err != nil {
		t.Fatal("unable to pull matching:", err)
	}
	expected = map[string]string{"a.txt": "hello", "b.txt": "world", "c.log": ""}
	if diff := cmp.Diff(expected, testingReadFiles(t, matched)); diff != "" {
		t.Error("PULL pattern contents mismatch (-expected +actual):\n", diff)
	}

	// An empty PULL sends nothing.
	if summary, err := client.Pull(ctx, nil, pulled); err != nil || len(summary.Files) != 0 {
		t.Error("unexpected empty PULL result:", summary, err)
	}

	// SYNC brings a stale directory up to date and leaves local-only files.
	synced := testingWriteFiles(t, map[string]string{"a.txt": "stale", "local.txt": "mine"})
	summary, err = client.Sync(ctx, synced)
	if err != nil {
		t.Fatal("unable to sync:", err)
	} else if len(summary.Files) != 4 {
		t.Error("unexpected SYNC file count:", len(summary.Files))
	}
	expected = map[string]string{"local.txt": "mine"}
	for name, content := range serverFiles {
		expected[name] = content
	}
	if diff := cmp.Diff(expected, testingReadFiles(t, synced)); diff != "" {
		t.Error("SYNC contents mismatch (-expected +actual):\n", diff)
	}

	// A second SYNC has nothing to do.
	if summary, err := client.Sync(ctx, synced); err != nil || len(summary.Files) != 0 {
		t.Error("unexpected repeated SYNC result:", summary, err)
	}

	// LEAVE ends the session.
	if err := client.Leave(ctx); err != nil {
		t.Fatal("unable to leave:", err)
	}
	if _, err := client.List(ctx, t.TempDir()); !errors.Is(err, ErrClientClosed) {
		t.Error("expected closed client error, got:", err)
	}
}

// TestPullLiteralNames tests that names containing pattern metacharacters
// select only the file with that exact name.
func TestPullLiteralNames(t *testing.T) {
	serverFiles := map[string]string{"a[1].txt": "server copy", "a1.txt": "server copy"}
	client := testingConnect(t, testingServe(t, testingWriteFiles(t, serverFiles), 1))
	ctx := context.Background()

	local := testingWriteFiles(t, map[string]string{"a1.txt": "my local edits"})
	summary, err := client.Pull(ctx, []string{"a[1].txt"}, local)
	if err != nil {
		t.Fatal("unable to pull:", err)
	}
	if diff := cmp.Diff([]string{"a[1].txt"}, summary.Files); diff != "" {
		t.Error("pulled files mismatch (-expected +actual):\n", diff)
	}
	expected := map[string]string{"a[1].txt": "server copy", "a1.txt": "my local edits"}
	if diff := cmp.Diff(expected, testingReadFiles(t, local)); diff != "" {
		t.Error("local contents mismatch (-expected +actual):\n", diff)
	}

	// Names that can't be requested literally are rejected locally.
	if _, err := client.Pull(ctx, []string{"/a1.txt"}, local); err == nil {
		t.Error("name with path separator accepted")
	} else if !client.Usable() {
		t.Error("client unusable after rejected filter")
	}
	if _, err := client.PullMatching(ctx, []string{"[x"}, local); err == nil {
		t.Error("invalid pattern accepted")
	}
}

// TestSyncExactDelta tests that SYNC retrieves only the DIFF delta even when
// delta names look like patterns.
func TestSyncExactDelta(t *testing.T) {
	serverFiles := map[string]string{"x*": "star", "xa": "server a", "xb": "server b"}
	client := testingConnect(t, testingServe(t, testingWriteFiles(t, serverFiles), 1))
	local := testingWriteFiles(t, map[string]string{"xa": "local a", "xb": "server b"})

	// The delta holds the new x* and the stale xa. xb is current.
	delta, err := client.Diff(context.Background(), local)
	if err != nil {
		t.Fatal("unable to diff:", err)
	}
	if diff := cmp.Diff([]string{"x*", "xa"}, testingNames(delta)); diff != "" {
		t.Fatal("delta mismatch (-expected +actual):\n", diff)
	}

	summary, err := client.Sync(context.Background(), local)
	if err != nil {
		t.Fatal("unable to sync:", err)
	}
	transferred := append([]string(nil), summary.Files...)
	sort.Strings(transferred)
	if diff := cmp.Diff([]string{"x*", "xa"}, transferred); diff != "" {
		t.Error("sync transferred mismatch (-expected +actual):\n", diff)
	}
}

// TestStorageFailureRecoverable tests that a destination failure doesn't break
// the client.
func TestStorageFailureRecoverable(t *testing.T) {
	client := testingConnect(t, testingServe(t, testingWriteFiles(t, map[string]string{"a.txt": "hello"}), 1))
	ctx := context.Background()

	_, err := client.List(ctx, filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, transfer.ErrTransfer) || transfer.IsFatal(err) {
		t.Fatal("expected non-fatal transfer error, got:", err)
	}
	if _, err := client.List(ctx, t.TempDir()); err != nil {
		t.Error("client unusable after storage failure:", err)
	}
}

// TestRefusal tests that a refusal is surfaced as ErrSessionClosed and breaks
// the client.
func TestRefusal(t *testing.T) {
	address := testingServe(t, t.TempDir(), 1)
	ctx := context.Background()

	// Occupy the only slot.
	occupant := testingConnect(t, address)
	if _, err := occupant.List(ctx, t.TempDir()); err != nil {
		t.Fatal("unable to list:", err)
	}

	// A second client is refused.
	refused := testingConnect(t, address)
	if _, err := refused.List(ctx, t.TempDir()); !errors.Is(err, ErrSessionClosed) {
		t.Fatal("expected session closed error, got:", err)
	}
	if refused.Usable() {
		t.Error("refused client still usable")
	}
	if _, err := refused.List(ctx, t.TempDir()); !errors.Is(err, ErrClientBroken) {
		t.Error("expected broken client error, got:", err)
	}
}

// TestCancellation tests that cancelling a call interrupts blocked I/O and
// breaks the client.
func TestCancellation(t *testing.T) {
	// Use a peer that never responds.
	local, remote := net.Pipe()
	defer remote.Close()
	go func() {
		buffer := make([]byte, protocol.EnvelopeSize)
		for {
			if _, err := remote.Read(buffer); err != nil {
				return
			}
		}
	}()
	client := NewClient(local, nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := client.List(ctx, t.TempDir()); err == nil {
		t.Fatal("call succeeded without a response")
	}
	if _, err := client.List(context.Background(), t.TempDir()); !errors.Is(err, ErrClientBroken) {
		t.Error("expected broken client error, got:", err)
	}
}
