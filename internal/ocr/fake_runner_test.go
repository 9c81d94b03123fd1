package ocr

import (
	"context"
	"fmt"
	"os"
	"sync"
)

type call struct {
	name string
	args []string
}

// fakeRunner records invocations. When pages > 0 it behaves like pdftocairo and
// writes <base>-NN.png files for the last argument.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	stdout string
	stderr string
	err    error
	pages  int
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: append([]string(nil), args...)})
	f.mu.Unlock()

	if f.pages > 0 && len(args) > 0 {
		base := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			path := fmt.Sprintf("%s-%02d.png", base, i)
			if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
	}
	return []byte(f.stdout), []byte(f.stderr), f.err
}
