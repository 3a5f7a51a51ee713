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

// Package debver compares Debian version strings and evaluates the relation
// operators used in dependency fields.
package debver

import (
	"strings"

	version "github.com/knqyf263/go-deb-version"
	"github.com/pkg/errors"
)

// Op is a version relation operator as written in a dependency field.
type Op int

const (
	NoOp Op = iota
	LessEq
	GreaterEq
	Less
	Greater
	Equal
	NotEqual
)

var opStrings = map[Op]string{
	NoOp:      "",
	LessEq:    "<=",
	GreaterEq: ">=",
	Less:      "<<",
	Greater:   ">>",
	Equal:     "=",
	NotEqual:  "!=",
}

func (o Op) String() string {
	return opStrings[o]
}

func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Op) UnmarshalText(b []byte) error {
	op, err := ParseOp(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// ParseOp parses a relation operator. The obsolete "<" and ">" forms mean
// "<=" and ">=" respectively, as dpkg still accepts them.
func ParseOp(s string) (Op, error) {
	switch strings.TrimSpace(s) {
	case "":
		return NoOp, nil
	case "<=", "<":
		return LessEq, nil
	case ">=", ">":
		return GreaterEq, nil
	case "<<":
		return Less, nil
	case ">>":
		return Greater, nil
	case "=", "==":
		return Equal, nil
	case "!=":
		return NotEqual, nil
	}
	return NoOp, errors.Errorf("unknown version operator %q", s)
}

// Compare returns -1, 0 or 1 when a is older than, equal to or newer than b.
// Strings that are not valid Debian versions are compared lexically.
func Compare(a, b string) int {
	if a == b {
		return 0
	}
	va, errA := version.NewVersion(a)
	vb, errB := version.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

// Valid reports whether s parses as a Debian version.
func Valid(s string) bool {
	_, err := version.NewVersion(s)
	return err == nil
}

// Check reports whether ver satisfies "op target".
func Check(ver string, op Op, target string) bool {
	if op == NoOp {
		return true
	}
	c := Compare(ver, target)
	switch op {
	case LessEq:
		return c <= 0
	case GreaterEq:
		return c >= 0
	case Less:
		return c < 0
	case Greater:
		return c > 0
	case Equal:
		return c == 0
	case NotEqual:
		return c != 0
	}
	return false
}
