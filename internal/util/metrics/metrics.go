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

// Package metrics holds shared Prometheus bucket and label
// definitions so that individual packages don't each invent slightly
// different histogram buckets.
package metrics

// LatencyBuckets is used for histograms that measure the duration of
// in-process operations (lock held, queue walked, journal write
// awaited). It favors resolution in the sub-second range, where limbo
// decisions are expected to land.
var LatencyBuckets = []float64{
	.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// ReplicaLabels is attached to metrics that are broken down by
// replica identity. The limbo fills it with its own replica ID, not
// with the ID of a replica that sent an acknowledgement.
var ReplicaLabels = []string{"replica"}
