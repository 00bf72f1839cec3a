/*
Package ledger tracks which transcript documents have already been
delivered. It is the sole mechanism preventing duplicate sends: a URL is
committed only after the mail transport has accepted the e-book, and once
present it is never removed by normal operation.
*/
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/phuslu/log"
)

// Ledger is a persistent set of delivered document URLs. Membership tests
// are O(1); the backing file is rewritten in full on every commit so an
// interrupted run can never observe a half-written append.
type Ledger struct {
	mu     sync.Mutex
	path   string
	urls   map[string]struct{}
	logger *log.Logger
}

// Open loads the ledger at path, creating parent directories as needed.
// A missing file means an empty ledger. A malformed file is not fatal:
// the ledger starts empty and the problem is logged, the same way the
// rest of the pipeline degrades instead of aborting the batch.
func Open(path string, logger *log.Logger) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory %s: %w", filepath.Dir(path), err)
	}

	l := &Ledger{
		path:   path,
		urls:   make(map[string]struct{}),
		logger: logger,
	}
	l.load()
	return l, nil
}

func (l *Ledger) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Info().Str("path", l.path).Msg("ledger file not found, starting empty")
			return
		}
		l.logger.Warn().Err(err).Str("path", l.path).Msg("failed to read ledger file, starting empty")
		return
	}

	var delivered []string
	if err := json.Unmarshal(data, &delivered); err != nil {
		l.logger.Warn().Err(err).Str("path", l.path).Msg("failed to parse ledger file, starting empty")
		return
	}

	for _, url := range delivered {
		l.urls[url] = struct{}{}
	}
	l.logger.Info().Int("count", len(l.urls)).Str("path", l.path).Msg("loaded delivery ledger")
}

// Contains reports whether the document at url has already been delivered.
func (l *Ledger) Contains(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.urls[url]
	return ok
}

// Commit records url as delivered and persists the full set before
// returning. Callers must only commit after the mail transport has
// confirmed submission for that url.
func (l *Ledger) Commit(url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.urls[url] = struct{}{}
	return l.save()
}

func (l *Ledger) save() error {
	delivered := make([]string, 0, len(l.urls))
	for url := range l.urls {
		delivered = append(delivered, url)
	}
	sort.Strings(delivered)

	data, err := json.MarshalIndent(delivered, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger file %s: %w", l.path, err)
	}
	return nil
}

// Len returns the number of delivered URLs.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.urls)
}

// Path returns the location of the backing file.
func (l *Ledger) Path() string {
	return l.path
}
