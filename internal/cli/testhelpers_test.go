package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fmueller/streamplay/internal/bridge"
	"github.com/fmueller/streamplay/internal/engine"
	"github.com/fmueller/streamplay/internal/ipc"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()
	return runWithApp(t, newAppState(), args)
}

// runWithApp isolates the command from the user's config file.
func runWithApp(t *testing.T, app *appState, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := newRootCmd(app)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.toml")}, args...))

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

type recordingEngine struct {
	mu      sync.Mutex
	sources []string
	cancels int
}

func (e *recordingEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancels++
}

func (e *recordingEngine) Start(source string, _ func(engine.Completion)) engine.Invocation {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources = append(e.sources, source)
	return engine.Invocation{ID: "inv", Source: source, Command: engine.CommandLine(source)}
}

// fakeClient answers method calls with a real bridge and replays canned
// status responses, repeating the last one.
type fakeClient struct {
	bridge   *bridge.Bridge
	engine   *recordingEngine
	mu       sync.Mutex
	methods  []string
	statuses []*ipc.StatusResponse
	closed   bool
}

func newFakeClient(statuses ...*ipc.StatusResponse) *fakeClient {
	e := &recordingEngine{}
	return &fakeClient{bridge: bridge.New(e, nil), engine: e, statuses: statuses}
}

func (c *fakeClient) Invoke(_ context.Context, method string, args map[string]any) (bridge.Result, error) {
	c.mu.Lock()
	c.methods = append(c.methods, method)
	c.mu.Unlock()
	return c.bridge.Handle(method, args), nil
}

func (c *fakeClient) Status(_ context.Context) (*ipc.StatusResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.statuses) == 0 {
		return &ipc.StatusResponse{}, nil
	}
	status := c.statuses[0]
	if len(c.statuses) > 1 {
		c.statuses = c.statuses[1:]
	}
	return status, nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func appWithClient(client *fakeClient) (*appState, *string) {
	app := newAppState()
	app.noProgress = true
	dialed := new(string)
	app.dialFn = func(path string) (bridgeClient, error) {
		*dialed = path
		return client, nil
	}
	return app, dialed
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
