// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package limbo

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config contains the user-visible, live-reloadable tunables of spec
// §6. A Config is bound to a running Limbo via Limbo.OnParametersChange
// whenever the flag set is reloaded.
type Config struct {
	SynchroQuorum  int
	SynchroTimeout time.Duration
}

// Bind registers flags, mirroring the source system's synchro_quorum
// and synchro_timeout tunables.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.IntVar(
		&c.SynchroQuorum,
		"synchroQuorum",
		1,
		"the number of replicas, not including this one, that must acknowledge "+
			"a synchronous transaction before it is confirmed")
	flags.DurationVar(
		&c.SynchroTimeout,
		"synchroTimeout",
		4*time.Second,
		"how long a synchronous transaction may wait for quorum before it is rolled back; "+
			"zero does not disable the timeout: waits then time out at once")
}

// Preflight validates the configuration and normalizes it into the
// Parameters the limbo package itself understands.
func (c *Config) Preflight() error {
	if c.SynchroQuorum < 0 {
		return errors.New("synchroQuorum must not be negative")
	}
	if c.SynchroTimeout < 0 {
		return errors.New("synchroTimeout must not be negative")
	}
	return nil
}

// Parameters converts the validated Config into the Parameters type
// that Limbo.OnParametersChange and limbo.New accept.
func (c *Config) Parameters() Parameters {
	return Parameters{
		SynchroQuorum:  c.SynchroQuorum,
		SynchroTimeout: c.SynchroTimeout,
	}
}
