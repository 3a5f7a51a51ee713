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

package rules

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"helm.sh/helm/v3/pkg/lint/support"

	"github.com/rancher-sandbox/depcache/internal/policy"
)

// Pins runs the pin rules on a preferences file or directory.
func Pins(linter *support.Linter, path string) {
	files, err := policy.PinFiles(path)
	if !linter.RunLinterRule(support.ErrorSev, path, err) {
		return
	}
	for _, f := range files {
		entries, err := policy.ParsePinFile(f)
		linter.RunLinterRule(support.ErrorSev, f, err)
		for _, e := range entries {
			linter.RunLinterRule(support.ErrorSev, f, validatePinPriority(e))
			linter.RunLinterRule(support.InfoSev, f, validatePinDowngrade(e))
			linter.RunLinterRule(support.WarningSev, f, validatePinVersion(e))
			linter.RunLinterRule(support.WarningSev, f, validatePinRelease(e))
		}
	}
}

// validatePinPriority checks that the pin has an effect
func validatePinPriority(e policy.PinEntry) error {
	if e.Priority == 0 {
		return errors.Errorf("pin for %s has no priority", e.Package)
	}
	return nil
}

// validatePinDowngrade points out pins that may downgrade packages
func validatePinDowngrade(e policy.PinEntry) error {
	if e.Priority > 1000 {
		return fmt.Errorf("pin for %s has priority %d, above 1000 installed versions may be downgraded", e.Package, e.Priority)
	}
	return nil
}

// validatePinVersion checks that version ranges parse, as broken ones are
// matched literally
func validatePinVersion(e policy.PinEntry) error {
	if e.Type != "version" || e.Data == "" {
		return nil
	}
	if strings.HasPrefix(e.Data, "/") || strings.ContainsAny(e.Data, "*?[") {
		return nil
	}
	if !strings.ContainsAny(e.Data, "^~<>=!,| ") {
		return nil
	}
	if _, err := semver.NewConstraint(e.Data); err != nil {
		return errors.Wrapf(err, "version range %q of the pin for %s is broken and is matched literally", e.Data, e.Package)
	}
	return nil
}

// validatePinRelease checks the key=value form of release pins, where a
// single bad term keeps the pin from ever matching
func validatePinRelease(e policy.PinEntry) error {
	if e.Type != "release" || !strings.Contains(e.Data, "=") {
		return nil
	}
	for _, term := range strings.Split(e.Data, ",") {
		kv := strings.SplitN(strings.TrimSpace(term), "=", 2)
		if len(kv) != 2 {
			return errors.Errorf("release pin for %s has a term without a key: %q", e.Package, term)
		}
		switch strings.TrimSpace(kv[0]) {
		case "a", "n", "o", "l", "c", "v":
		default:
			return errors.Errorf("release pin for %s uses unknown key %q", e.Package, kv[0])
		}
	}
	return nil
}
