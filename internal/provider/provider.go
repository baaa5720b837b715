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

// Package provider assembles a runnable Limbo out of its
// collaborators (Journal, replica.Set, Config) for a host process.
// InitializeLimbo is generated by Wire from the injectors in wire.go;
// see wire_gen.go.
package provider

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/cockroachdb/txn-limbo/internal/limbo"
	"github.com/cockroachdb/txn-limbo/internal/limbo/journal"
	"github.com/cockroachdb/txn-limbo/internal/limbo/replica"
	"github.com/cockroachdb/txn-limbo/internal/util/stopper"
)

// Config is the top-level, flag-bindable configuration for a limbo
// process: which replica this instance is, which other replicas
// participate in quorum, where decision records are journaled, and the
// live-reloadable synchro_quorum/synchro_timeout tunables.
type Config struct {
	Limbo limbo.Config

	SelfID       string
	ReplicaIDs   []string
	JournalDSN   string
	JournalTable string
}

// Bind registers flags for every nested collaborator.
func (c *Config) Bind(flags *pflag.FlagSet) {
	c.Limbo.Bind(flags)

	flags.StringVar(&c.SelfID, "replicaID", "", "this process's replica identity")
	flags.StringSliceVar(&c.ReplicaIDs, "replicas", nil,
		"the other replica identities that participate in synchronous quorum")
	flags.StringVar(&c.JournalDSN, "journalURL", "",
		"a postgres connection string for the decision journal; if empty, an in-memory journal is used")
	flags.StringVar(&c.JournalTable, "journalTable", "txn_limbo_decisions",
		"the table name used to persist decision records")
}

// Preflight validates the configuration.
func (c *Config) Preflight() error {
	if err := c.Limbo.Preflight(); err != nil {
		return err
	}
	if c.SelfID == "" {
		return errors.New("replicaID must be set")
	}
	return nil
}

// ProvideReplicaSet constructs the tracked replica.Set from the
// configured replica identities.
func ProvideReplicaSet(cfg *Config) *replica.Set {
	ids := make([]replica.ID, len(cfg.ReplicaIDs))
	for i, id := range cfg.ReplicaIDs {
		ids[i] = replica.ID(id)
	}
	return replica.NewSet(ids...)
}

// ProvideJournal constructs the decision Journal described by cfg: a
// SQLJournal backed by a pgx pool when JournalDSN is set, otherwise an
// in-memory journal suitable for tests and single-process demos.
func ProvideJournal(ctx *stopper.Context, cfg *Config) (journal.Journal, func(), error) {
	if cfg.JournalDSN == "" {
		log.Info("no journalURL configured; using an in-memory decision journal")
		return &journal.MemJournal{}, func() {}, nil
	}

	pool, err := pgxpool.New(context.Background(), cfg.JournalDSN)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not open journal pool")
	}

	j, err := journal.NewSQLJournal(ctx, pool, cfg.JournalTable)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return j, pool.Close, nil
}

// ProvideLimbo assembles the Limbo itself.
func ProvideLimbo(cfg *Config, j journal.Journal, replicas *replica.Set) *limbo.Limbo {
	return limbo.New(replica.ID(cfg.SelfID), j, replicas, cfg.Limbo.Parameters())
}
