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

package policy

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/rancher-sandbox/depcache/internal/errorlist"
)

// PinFile is the YAML form of a preferences file.
type PinFile struct {
	Pins []PinEntry `json:"pins"`
}

// PinEntry is one pin of a PinFile. Package may hold several
// space-separated patterns.
type PinEntry struct {
	Package  string `json:"package"`
	Type     string `json:"type"`
	Data     string `json:"data"`
	Priority int    `json:"priority"`
}

// ReadPinFile loads pins from a preferences file, or from every file of a
// preferences directory. It reports success; the reasons for a failure are
// recorded on the shared error list. Pins read before an error stay active.
func (p *Policy) ReadPinFile(path string) bool {
	files, err := PinFiles(path)
	if err != nil {
		p.errs.Error(err)
		return false
	}
	ok := true
	for _, f := range files {
		if !p.readPinFile(f) {
			ok = false
		}
	}
	return ok
}

// PinFiles returns path when it is a file, or the preferences files of the
// directory path in name order.
func PinFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't load preferences (%s)", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read preferences directory (%s)", path)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !preferencesName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	files := make([]string, 0, len(names))
	for _, n := range names {
		files = append(files, filepath.Join(path, n))
	}
	return files, nil
}

// preferencesName filters out editor backups and package manager leftovers
// in preferences directories.
func preferencesName(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}
	switch filepath.Ext(name) {
	case "", ".pref", ".yaml", ".yml":
		return true
	}
	return false
}

// ParsePinFile reads the entries of one preferences file, in the YAML form
// when the name ends in .yaml or .yml. Like ParsePreferences it returns the
// entries read before an error.
func ParsePinFile(path string) ([]PinEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't load preferences (%s)", path)
	}
	defer f.Close()

	var entries []PinEntry
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		entries, err = parseYAMLPins(f)
	default:
		entries, err = ParsePreferences(f)
	}
	if err != nil {
		return entries, errors.Wrapf(err, "%s", path)
	}
	return entries, nil
}

func (p *Policy) readPinFile(path string) bool {
	entries, err := ParsePinFile(path)
	ok := true
	if err != nil {
		p.errs.Error(err)
		if entries == nil {
			return false
		}
		ok = false
	}

	for _, e := range entries {
		for _, pattern := range strings.Fields(e.Package) {
			if err := p.CreatePin(e.Type, pattern, e.Data, e.Priority); err != nil {
				p.errs.Error(errors.Wrapf(err, "%s", path))
				return false
			}
		}
	}
	p.logger.Debugf("read %d pin entries from %s", len(entries), path)
	return ok
}

func parseYAMLPins(r io.Reader) ([]PinEntry, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var pf PinFile
	if err := yaml.UnmarshalStrict(b, &pf); err != nil {
		return nil, errors.Wrapf(errorlist.ErrParse, "%s", err)
	}
	for i, e := range pf.Pins {
		if strings.TrimSpace(e.Package) == "" {
			return pf.Pins[:i], errors.Wrapf(errorlist.ErrParse, "pin %d has no package", i)
		}
	}
	return pf.Pins, nil
}

// ParsePreferences parses stanzas of the form
//
//	Package: foo bar*
//	Pin: release a=stable
//	Pin-Priority: 990
//
// Entries parsed before a malformed stanza are returned with the error.
func ParsePreferences(r io.Reader) ([]PinEntry, error) {
	scanner := bufio.NewScanner(r)

	var entries []PinEntry
	fields := map[string]string{}
	lineNo := 0
	start := 0

	flush := func() error {
		if len(fields) == 0 {
			return nil
		}
		defer func() { fields = map[string]string{} }()
		pkgs, hasPkg := fields["package"]
		pin, hasPin := fields["pin"]
		prio, hasPrio := fields["pin-priority"]
		if !hasPkg && !hasPin && !hasPrio {
			// explanation only
			return nil
		}
		if !hasPkg || strings.TrimSpace(pkgs) == "" {
			return errors.Wrapf(errorlist.ErrParse, "stanza at line %d has no Package", start)
		}
		if !hasPin {
			return errors.Wrapf(errorlist.ErrParse, "stanza at line %d has no Pin", start)
		}
		if !hasPrio {
			return errors.Wrapf(errorlist.ErrParse, "stanza at line %d has no Pin-Priority", start)
		}
		priority, err := strconv.Atoi(strings.TrimSpace(prio))
		if err != nil {
			return errors.Wrapf(errorlist.ErrParse, "stanza at line %d: invalid Pin-Priority %q", start, prio)
		}
		typ, data := splitPin(pin)
		if _, err := ParseMatchType(typ); err != nil {
			return errors.Wrapf(err, "stanza at line %d", start)
		}
		entries = append(entries, PinEntry{Package: pkgs, Type: typ, Data: data, Priority: priority})
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		if trimmed == "" {
			if err := flush(); err != nil {
				return entries, err
			}
			continue
		}
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			// continuation, only used by Explanation
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return entries, errors.Wrapf(errorlist.ErrParse, "line %d: expected 'Field: value'", lineNo)
		}
		if len(fields) == 0 {
			start = lineNo
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		if key == "explanation" {
			fields[key] = ""
			continue
		}
		fields[key] = strings.TrimSpace(parts[1])
	}
	if err := scanner.Err(); err != nil {
		return entries, errors.Wrap(err, "scanning preferences")
	}
	return entries, flush()
}

// splitPin splits "release a=stable" into its type and data, dropping the
// quotes origin data is usually written with.
func splitPin(pin string) (string, string) {
	pin = strings.TrimSpace(pin)
	typ := pin
	data := ""
	if i := strings.IndexAny(pin, " \t"); i >= 0 {
		typ = pin[:i]
		data = strings.TrimSpace(pin[i+1:])
	}
	return typ, strings.Trim(data, `"`)
}
