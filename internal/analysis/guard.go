// Package analysis executes model-authored aggregate queries against the
// telemetry table. Free-form code execution is deliberately not supported:
// queries are expressed in a closed filter/group/aggregate pipeline language
// interpreted in-process, with no IO, loops, or user-defined functions. A
// textual denylist sits in front as defense in depth against a model that
// tries to smuggle host-language code through the tool anyway.
package analysis

import "strings"

// SecurityAlert is returned verbatim when submitted code trips the denylist.
// Nothing is executed in that case.
const SecurityAlert = "Security Alert"

var denylist = []string{
	"import os",
	"import sys",
	"import subprocess",
	"subprocess",
	"os.system",
	"os.popen",
	"open(",
	"exec(",
	"eval(",
	"__import__",
	"importlib",
	"globals(",
	"locals(",
}

// violatesPolicy reports whether code contains any denylisted construct.
// This is a substring check, not a parse: the interpreter below cannot reach
// the host system regardless, so a false positive only costs a refusal.
func violatesPolicy(code string) bool {
	lower := strings.ToLower(code)
	for _, tok := range denylist {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
