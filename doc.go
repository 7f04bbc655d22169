// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package ftlsim implements the core of a flash translation layer for a
// simulated NVMe SSD, in both conventional and hybrid SLC/QLC flavours.
//
// It owns the shared geometry (channels, LUNs, planes, blocks, pages) and
// the physical/logical address types that every other package in this
// module (mapping, line, wp, flow, gc, hotness, nand, ftl) builds on.
package ftlsim
