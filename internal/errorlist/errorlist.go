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

/*
Package errorlist holds the error kinds of the engine and the shared list
errors from the wider system accumulate on.

Engine calls report their own outcome through return values. Failures of
collaborators (pin files, locks, fetches) are pushed onto a List instead, and
callers drain it after every operation that may have touched it. A call
that returned success while the list holds errors must still be treated as
failed.
*/
package errorlist

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrParse             = errors.New("parse error")
	ErrLockUnavailable   = errors.New("unable to acquire lock")
	ErrFetchFailure      = errors.New("failed to fetch")
	ErrResolutionFailure = errors.New("unable to correct problems")
	ErrCommitAborted     = errors.New("commit aborted")
	ErrNotInitialized    = errors.New("cache is not initialized")
)

type entry struct {
	err     error
	warning bool
}

// List is the shared error channel. It is safe for concurrent use.
type List struct {
	mu      sync.Mutex
	entries []entry
}

// New returns an empty list.
func New() *List {
	return &List{}
}

// Error records err as an error.
func (l *List) Error(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{err: err})
}

// Errorf records an error of the given kind with a formatted message.
func (l *List) Errorf(kind error, format string, args ...interface{}) {
	l.Error(errors.Wrapf(kind, format, args...))
}

// Warning records err as a warning. Warnings never make an operation fail.
func (l *List) Warning(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{err: err, warning: true})
}

// PendingError reports whether any error, not counting warnings, is queued.
func (l *List) PendingError() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if !e.warning {
			return true
		}
	}
	return false
}

// Empty reports whether nothing at all is queued.
func (l *List) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries) == 0
}

// Drain empties the list. It returns the queued warnings, and the queued
// errors combined into one or nil.
func (l *List) Drain() ([]error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs Errors
	var warnings []error
	for _, e := range l.entries {
		if e.warning {
			warnings = append(warnings, e.err)
		} else {
			errs = append(errs, e.err)
		}
	}
	l.entries = nil
	if len(errs) == 0 {
		return warnings, nil
	}
	return warnings, errs
}

// Errors combines several errors. errors.Is and errors.As see every one of
// them.
type Errors []error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e Errors) Unwrap() []error {
	return e
}
