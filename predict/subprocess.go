package predict

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"

	"github.com/railsignal/raildelay/feature"
)

// subprocessModel fronts an artifact that is not itself a Go value:
// a long-lived child process started once per loaded artifact, fed
// one JSON feature row per line on stdin and replying with one JSON
// object {"prediction": <float>} per line on stdout. This mirrors the
// source's sklearn-pipeline artifacts, which Go cannot load directly;
// the subprocess is expected to wrap the original scikit-learn model.
type subprocessModel struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner

	mu     sync.Mutex
	closed bool
}

type subprocessRequest struct {
	Row map[string]any `json:"row"`
}

type subprocessResponse struct {
	Prediction float64 `json:"prediction"`
	Error      string  `json:"error"`
}

func startSubprocessModel(command string, args []string) (*subprocessModel, error) {
	cmd := exec.Command(command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "predict: open subprocess stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "predict: open subprocess stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "predict: start subprocess model")
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &subprocessModel{cmd: cmd, stdin: stdin, stdout: scanner}, nil
}

func (m *subprocessModel) Predict(row feature.Row) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, fmt.Errorf("predict: subprocess model already closed")
	}

	payload := map[string]any{}
	for _, p := range row.Ordered() {
		payload[p.Name] = p.Value
	}

	line, err := json.Marshal(subprocessRequest{Row: payload})
	if err != nil {
		return 0, errors.Wrap(err, "predict: marshal subprocess request")
	}

	if _, err := m.stdin.Write(append(line, '\n')); err != nil {
		return 0, errors.Wrap(err, "predict: write subprocess request")
	}

	if !m.stdout.Scan() {
		if err := m.stdout.Err(); err != nil {
			return 0, errors.Wrap(err, "predict: read subprocess response")
		}
		return 0, fmt.Errorf("predict: subprocess closed stdout with no response")
	}

	var resp subprocessResponse
	if err := json.Unmarshal(m.stdout.Bytes(), &resp); err != nil {
		return 0, errors.Wrap(err, "predict: decode subprocess response")
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("predict: subprocess model error: %s", resp.Error)
	}
	return resp.Prediction, nil
}

func (m *subprocessModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	_ = m.stdin.Close()
	return m.cmd.Wait()
}
