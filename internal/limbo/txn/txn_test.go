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

package txn_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/txn-limbo/internal/limbo/txn"
)

func TestFlags(t *testing.T) {
	r := require.New(t)

	b := txn.NewBasic("owner", nil)
	r.Equal(txn.Flag(0), b.Flags())

	b.SetFlags(txn.WaitSync)
	r.True(b.Flags()&txn.WaitSync != 0)

	b.SetFlags(txn.WaitAck)
	r.True(b.Flags()&txn.WaitAck != 0)
	r.True(b.Flags()&txn.WaitSync != 0)

	b.ClearFlags(txn.WaitSync)
	r.False(b.Flags()&txn.WaitSync != 0)
	r.True(b.Flags()&txn.WaitAck != 0)
}

func TestSignatureHelpers(t *testing.T) {
	r := require.New(t)

	r.False(txn.Pending.Done())
	r.False(txn.Pending.Resolved())

	r.True(txn.QuorumTimeout.Done())
	r.False(txn.QuorumTimeout.Resolved())

	r.True(txn.SyncRollback.Done())
	r.False(txn.SyncRollback.Resolved())

	r.True(txn.Signature(7).Done())
	r.True(txn.Signature(7).Resolved())
}

func TestCompleteFiresCommitTriggers(t *testing.T) {
	r := require.New(t)

	var doneCalled bool
	b := txn.NewBasic("owner", func() { doneCalled = true })
	b.SetSignature(txn.Signature(5))

	var committed, rolledBack bool
	b.OnCommit(func() { committed = true })
	b.OnRollback(func() { rolledBack = true })

	b.Complete()

	r.True(committed)
	r.False(rolledBack)
	r.True(doneCalled)
	r.True(b.Flags()&txn.IsDone != 0)
}

func TestCompleteFiresRollbackTriggers(t *testing.T) {
	r := require.New(t)

	b := txn.NewBasic("owner", nil)
	b.SetSignature(txn.SyncRollback)

	var committed, rolledBack bool
	b.OnCommit(func() { committed = true })
	b.OnRollback(func() { rolledBack = true })

	b.Complete()

	r.False(committed)
	r.True(rolledBack)
}

func TestSetOwnerReturnsPrevious(t *testing.T) {
	r := require.New(t)

	b := txn.NewBasic("original", nil)
	prev := b.SetOwner("replacement")
	r.Equal(txn.Handle("original"), prev)
	r.Equal(txn.Handle("replacement"), b.Owner())
}
