package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/kbukum/powermap/pull"
)

// lineIterator yields the lines of r without their line endings.
type lineIterator struct {
	sc     *bufio.Scanner
	closer io.Closer
}

func (it *lineIterator) Next(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if it.sc.Scan() {
		return it.sc.Text(), true, nil
	}
	return "", false, it.sc.Err()
}

func (it *lineIterator) Close() error {
	if it.closer == nil {
		return nil
	}
	c := it.closer
	it.closer = nil
	return c.Close()
}

// openLines opens path, or stdin when path is empty or "-", as a puller of
// lines. The file is closed once the puller is exhausted or closed.
func openLines(path string, stdin io.Reader) (pull.Puller[string], error) {
	it := &lineIterator{}
	if path == "" || path == "-" {
		it.sc = bufio.NewScanner(stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		it.sc = bufio.NewScanner(f)
		it.closer = f
	}
	it.sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return pull.FromIterator(it), nil
}
