// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Command gen-schema writes the JSON Schemas that token payloads are
// validated against.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/token"
)

var schemas = map[string]any{
	"session.schema.json": &auth.Claims{},
	"purpose.schema.json": &auth.PurposeClaims{},
}

func main() {
	dir := "schemas"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if err := generate(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schemas: %v\n", err)
		os.Exit(1)
	}
}

func generate(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	for name, claims := range schemas {
		schema, err := token.ReflectSchema(claims)
		if err != nil {
			return err
		}
		outPath := filepath.Join(dir, name)
		if err := os.WriteFile(outPath, append(schema, '\n'), 0o600); err != nil {
			return err
		}
		fmt.Printf("Generated %s\n", outPath)
	}
	return nil
}
