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

package action

import (
	"time"

	"github.com/Masterminds/log-go"

	"github.com/rancher-sandbox/depcache/internal/config"
	"github.com/rancher-sandbox/depcache/internal/errorlist"
)

// Timestamper is a function capable of producing a timestamp.
//
// By default, this is time.Now. This can be overridden for testing though,
// so that history timestamps are predictable.
var Timestamper = time.Now

// Configuration is what every action is constructed with.
type Configuration struct {
	Config *config.Config
	Errors *errorlist.List
	Log    log.Logger

	// History records completed commits when set.
	History *History
	// NoEmojis strips emoji from messages.
	NoEmojis bool
}

// NewConfiguration returns a Configuration with an empty error list.
func NewConfiguration(cfg *config.Config, logger log.Logger) *Configuration {
	return &Configuration{
		Config: cfg,
		Errors: errorlist.New(),
		Log:    logger,
	}
}

// HandleErrors drains the shared error list after an operation that
// reported ok. Warnings are logged. Queued errors turn the outcome into a
// failure, even when the operation itself reported success.
func HandleErrors(ok bool, errs *errorlist.List, logger log.Logger) (bool, error) {
	warnings, err := errs.Drain()
	for _, w := range warnings {
		logger.Warnf("W: %s", w)
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

// handleErrors is HandleErrors on the configuration's list and logger.
func (c *Configuration) handleErrors(ok bool) (bool, error) {
	return HandleErrors(ok, c.Errors, c.Log)
}
