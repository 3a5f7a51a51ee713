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

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	defer func(v, m string) { version, metadata = v, m }(version, metadata)

	version, metadata = "v1.2.3", ""
	assert.Equal(t, "v1.2.3", GetVersion())

	metadata = "unreleased"
	assert.Equal(t, "v1.2.3+unreleased", GetVersion())
	assert.Equal(t, "v1.2.3+unreleased", Get().Version)
	assert.NotEmpty(t, Get().GoVersion)
}
