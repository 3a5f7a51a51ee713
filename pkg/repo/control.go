/*
Copyright SUSE LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package repo

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"

	"github.com/rancher-sandbox/depcache/internal/errorlist"
)

// Stanza is one paragraph of a Debian control file, keyed by lower case
// field name. Continuation lines are joined with newlines.
type Stanza map[string]string

// Get returns the value of a field, matched case-insensitively.
func (s Stanza) Get(field string) string {
	return s[strings.ToLower(field)]
}

// ParseControl parses every stanza of a control file: Packages indexes,
// the dpkg status file, Release files and extended_states.
func ParseControl(r io.Reader) ([]Stanza, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // Handle large descriptions

	var stanzas []Stanza
	var current Stanza
	last := ""
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		// Empty line indicates end of stanza
		if strings.TrimSpace(line) == "" {
			if current != nil {
				stanzas = append(stanzas, current)
				current = nil
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		// Continuation line (starts with space or tab)
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if current == nil || last == "" {
				return stanzas, errors.Wrapf(errorlist.ErrParse, "line %d: continuation without a field", lineNo)
			}
			current[last] += "\n" + strings.TrimSpace(line)
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return stanzas, errors.Wrapf(errorlist.ErrParse, "line %d: expected 'Field: value'", lineNo)
		}
		if current == nil {
			current = Stanza{}
		}
		last = strings.ToLower(strings.TrimSpace(parts[0]))
		current[last] = strings.TrimSpace(parts[1])
	}
	if current != nil {
		stanzas = append(stanzas, current)
	}
	if err := scanner.Err(); err != nil {
		return stanzas, errors.Wrap(err, "scanning control file")
	}
	return stanzas, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenIndex opens an index file, decompressing it when it ends in .xz or
// .gz.
func OpenIndex(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open index (%s)", path)
	}
	switch {
	case strings.HasSuffix(path, ".xz"):
		xzReader, err := xz.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "creating xz reader for %s", path)
		}
		return &readCloser{Reader: xzReader, closers: []io.Closer{f}}, nil
	case strings.HasSuffix(path, ".gz"):
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "creating gzip reader for %s", path)
		}
		return &readCloser{Reader: gzReader, closers: []io.Closer{gzReader, f}}, nil
	}
	return f, nil
}
