// Package notes keeps the agent's remembered facts in a small local JSON
// file. It is best effort on both ends: load failures yield an empty book and
// write failures are logged and swallowed. The file is never authoritative.
package notes

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

type Book struct {
	path string

	mu    sync.Mutex
	facts map[string]string
}

// Load reads the notes file at path. Any error (missing file, bad JSON)
// results in an empty book.
func Load(path string) *Book {
	b := &Book{path: path, facts: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		return b
	}
	if err := json.Unmarshal(data, &b.facts); err != nil {
		log.Printf("notes: ignoring unreadable %s: %v", path, err)
		b.facts = make(map[string]string)
	}
	return b
}

// Remember stores a fact and writes the file through. Returns a confirmation
// string for the model regardless of whether the write stuck.
func (b *Book) Remember(topic, info string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.facts[topic] = info
	data, err := json.Marshal(b.facts)
	if err == nil {
		err = os.WriteFile(b.path, data, 0o644)
	}
	if err != nil {
		log.Printf("notes: write %s: %v", b.path, err)
	}
	return fmt.Sprintf("remembered: %s", topic)
}

// Summary renders the remembered facts as "topic: info" lines for inclusion
// in the system instruction. Empty string when nothing is remembered.
func (b *Book) Summary() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.facts) == 0 {
		return ""
	}
	topics := make([]string, 0, len(b.facts))
	for t := range b.facts {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	var sb strings.Builder
	for _, t := range topics {
		fmt.Fprintf(&sb, "%s: %s\n", t, b.facts[t])
	}
	return sb.String()
}
