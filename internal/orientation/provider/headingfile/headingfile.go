// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package headingfile reads headings line by line from a file or named pipe. This allows external
// sensor bridges, for example a phone forwarding its orientation, to feed the application.
//
// Each line is either a compass heading in degrees ("123.4") or a counter-clockwise device
// orientation angle prefixed with "alpha:" ("alpha:236.6"). Empty lines and lines starting with
// "#" are ignored.
package headingfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/waybar-landmark/internal/orientation"
)

const (
	name        = "headingfile"
	alphaPrefix = "alpha:"
)

// Provider reads headings from a file.
type Provider struct {
	name   string
	path   string
	openFn func(path string) (io.ReadCloser, error)
}

// New returns a Provider reading from path.
func New(path string) *Provider {
	return &Provider{
		name: name,
		path: path,
		openFn: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// Name returns the name of the provider.
func (p *Provider) Name() string {
	return p.name
}

// HeadingStream opens the file and streams every valid line until the file ends or ctx is done.
// A missing file is reported as orientation.ErrUnsupported.
func (p *Provider) HeadingStream(ctx context.Context) (<-chan orientation.Reading, error) {
	file, err := p.openFn(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("heading file %q does not exist: %w", p.path, orientation.ErrUnsupported)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open heading file %q: %w", p.path, err)
	}

	out := make(chan orientation.Reading)
	stop := context.AfterFunc(ctx, func() { _ = file.Close() })
	go func() {
		defer close(out)
		defer func() {
			if stop() {
				_ = file.Close()
			}
		}()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			heading, ok := ParseLine(scanner.Text())
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- orientation.Reading{Heading: heading, Source: p.name, At: time.Now()}:
			}
		}
	}()
	return out, nil
}

// ParseLine parses a single line into a compass heading.
func ParseLine(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return 0, false
	}

	alpha := false
	if rest, found := strings.CutPrefix(line, alphaPrefix); found {
		alpha, line = true, strings.TrimSpace(rest)
	}
	value, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, false
	}
	if alpha {
		return orientation.NormalizeAlpha(value), true
	}
	return value, true
}
