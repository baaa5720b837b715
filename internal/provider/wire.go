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

//go:build wireinject
// +build wireinject

package provider

import (
	"github.com/google/wire"

	"github.com/cockroachdb/txn-limbo/internal/limbo"
	"github.com/cockroachdb/txn-limbo/internal/util/stopper"
)

// InitializeLimbo wires together a Limbo and everything it depends on
// from cfg, returning a cleanup function that releases the underlying
// journal connection pool (if any).
func InitializeLimbo(ctx *stopper.Context, cfg *Config) (*limbo.Limbo, func(), error) {
	panic(wire.Build(
		ProvideReplicaSet,
		ProvideJournal,
		ProvideLimbo,
	))
}
