package techfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RTimothyEdwards/magic-core/pkg/vio"
)

// streamFrame is one entry on the include-file stack. The underlying
// file is opened lazily: pushing a frame (the moment an `include` line
// is scanned) only checks that the file exists; it is opened when the
// reader pulls its first line.
type streamFrame struct {
	path   string
	rc     io.ReadCloser
	reader *bufio.Reader
	lineNo int
}

// scanner reads logical lines across an include-file stack: physical
// lines ending in backslash are joined, leading-# lines are dropped,
// and `include <file>` lines push a new frame rather than being
// surfaced to the caller.
type scanner struct {
	loader *Loader
	stack  []*streamFrame
}

func newScanner(l *Loader) *scanner {
	return &scanner{loader: l}
}

func (s *scanner) push(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	var f *os.File
	rc := vio.LazyReadCloser(func() (io.Reader, error) {
		var err error
		f, err = os.Open(path)
		return f, err
	}, func() error {
		if f == nil {
			return nil
		}
		return f.Close()
	})
	s.stack = append(s.stack, &streamFrame{path: path, rc: rc, reader: bufio.NewReader(rc)})
	return nil
}

func (s *scanner) top() *streamFrame {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

func (s *scanner) closeAll() {
	for _, fr := range s.stack {
		fr.rc.Close()
	}
	s.stack = nil
}

// next returns the next logical line, or io.EOF once the whole include
// stack is exhausted. `include` directives are resolved transparently;
// a missing include file logs a warning and is
// skipped rather than aborting the load.
func (s *scanner) next() (string, error) {
	for {
		fr := s.top()
		if fr == nil {
			return "", io.EOF
		}

		line, err := s.readLogicalLine(fr)
		if err == io.EOF {
			fr.rc.Close()
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}
		if err != nil {
			return "", err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		fields := splitFields(trimmed)
		if len(fields) >= 2 && fields[0] == "include" {
			incPath := resolveRelative(fr.path, fields[1])
			if err := s.push(incPath); err != nil {
				s.loader.Log.Warnf("techfile: include %q: %v", fields[1], err)
			}
			continue
		}

		return trimmed, nil
	}
}

func resolveRelative(base, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(filepath.Dir(base), rel)
}

// readLogicalLine reads one physical line, joining trailing-backslash
// continuations into a single logical line.
func (s *scanner) readLogicalLine(fr *streamFrame) (string, error) {
	var sb strings.Builder
	for {
		raw, err := fr.reader.ReadString('\n')
		if err != nil && raw == "" {
			return "", io.EOF
		}
		fr.lineNo++
		raw = strings.TrimRight(raw, "\r\n")
		if strings.HasSuffix(raw, "\\") {
			sb.WriteString(strings.TrimSuffix(raw, "\\"))
			sb.WriteByte(' ')
			if err == io.EOF {
				return sb.String(), nil
			}
			continue
		}
		sb.WriteString(raw)
		return sb.String(), nil
	}
}

// curPos formats the current include-stack location for error
// messages ("file+line").
func (s *scanner) curPos() string {
	fr := s.top()
	if fr == nil {
		return "<eof>"
	}
	return fmt.Sprintf("%s:%d", fr.path, fr.lineNo)
}

// resolvePath applies the search path and .tech suffix tolerance of
// a technology search path's resolution rules.
func resolvePath(name string, searchPath []string) (string, error) {
	candidates := []string{name}
	if !strings.HasSuffix(name, ".tech") {
		candidates = append(candidates, name+".tech")
	}
	for _, dir := range searchPath {
		candidates = append(candidates, filepath.Join(dir, filepath.Base(name)))
		if !strings.HasSuffix(name, ".tech") {
			candidates = append(candidates, filepath.Join(dir, filepath.Base(name)+".tech"))
		}
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("techfile: cannot locate %q", name)
}
