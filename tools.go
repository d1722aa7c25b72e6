// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

//go:build tools

// Package main pins test-only dependencies to go.mod so that `go mod tidy`
// keeps the modules used behind the integration build tag.
package main

import (
	_ "github.com/onsi/ginkgo/v2"
	_ "github.com/onsi/gomega"
	_ "github.com/pashagolub/pgxmock/v4"
	_ "github.com/testcontainers/testcontainers-go/modules/postgres"
	_ "go.uber.org/goleak"
)
