package clientgen

import (
	"errors"
	"fmt"
	"strings"
)

// Target is the closed set of output formats.
type Target int

const (
	TargetEnv Target = iota
	TargetTypeScript
	TargetGo
	TargetPython

	numTargets
)

// ErrUnknownTarget is returned by ParseTarget for names that match no target.
var ErrUnknownTarget = errors.New("clientgen: unknown target")

var targetNames = [numTargets]string{
	TargetEnv:        "env",
	TargetTypeScript: "typescript",
	TargetGo:         "go",
	TargetPython:     "python",
}

var targetAliases = map[string]Target{
	"env":        TargetEnv,
	"dotenv":     TargetEnv,
	".env":       TargetEnv,
	"typescript": TargetTypeScript,
	"ts":         TargetTypeScript,
	"zod":        TargetTypeScript,
	"go":         TargetGo,
	"golang":     TargetGo,
	"python":     TargetPython,
	"py":         TargetPython,
	"pydantic":   TargetPython,
}

// Targets returns every target in declaration order.
func Targets() []Target {
	out := make([]Target, 0, numTargets)
	for t := Target(0); t < numTargets; t++ {
		out = append(out, t)
	}
	return out
}

// ParseTarget resolves a target name or alias, case-insensitively.
func ParseTarget(name string) (Target, error) {
	if t, ok := targetAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w %q (supported: %s)", ErrUnknownTarget, name, strings.Join(targetNames[:], ", "))
}

// Valid reports whether t is a declared target.
func (t Target) Valid() bool {
	return t >= 0 && t < numTargets
}

func (t Target) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Target(%d)", int(t))
	}
	return targetNames[t]
}
