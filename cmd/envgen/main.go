// Package main provides the envgen CLI.
//
// envgen turns a declaration of services and their typed environment
// variables into configuration artifacts:
//   - env:        a .env template
//   - typescript: a Zod schema for @t3-oss/env-core
//   - go:         envconfig structs loaded at init
//   - python:     pydantic-settings classes
//
// Declarations live in YAML, JSON or TOML files, or in a Postgres store
// managed with `envgen migrate` and `envgen import`.
//
// Usage:
//
//	envgen [flags] <command>
package main

func main() {
	Execute()
}
