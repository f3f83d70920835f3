// Package mailbox ingests local mail archives, either a directory of .eml
// files or a single mbox file, into domain messages ready for profiling.
// Unreadable files and messages are skipped and counted, never fatal.
package mailbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emersion/go-mbox"
	"github.com/rs/zerolog"

	"mailprofiler/core/domain"
	"mailprofiler/pkg/logger"
)

// =============================================================================
// Loader
// =============================================================================

// Stats counts one ingest run.
type Stats struct {
	Files   int `json:"files"`
	Parsed  int `json:"parsed"`
	Skipped int `json:"skipped"`
}

// Loader reads mail archives from the local filesystem.
type Loader struct {
	log zerolog.Logger
}

// NewLoader creates a mailbox loader.
func NewLoader() *Loader {
	return &Loader{log: logger.Component("ingest")}
}

// LoadDir reads every *.eml file in dir, sorted by filename so a batch
// always ingests in the same order. Other files are ignored.
func (l *Loader) LoadDir(dir string) ([]*domain.RawMessage, *Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: read dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".eml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	stats := &Stats{}
	msgs := make([]*domain.RawMessage, 0, len(names))
	for _, name := range names {
		stats.Files++
		msg, err := l.loadFile(filepath.Join(dir, name))
		if err != nil {
			l.warnSkip(name, err)
			stats.Skipped++
			continue
		}
		msgs = append(msgs, msg)
		stats.Parsed++
	}

	l.log.Info().
		Str("dir", dir).
		Int("files", stats.Files).
		Int("parsed", stats.Parsed).
		Int("skipped", stats.Skipped).
		Msg("directory ingest complete")
	return msgs, stats, nil
}

// LoadMbox streams the messages of an mbox file in archive order.
func (l *Loader) LoadMbox(path string) ([]*domain.RawMessage, *Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: open mbox: %w", err)
	}
	defer f.Close()

	stats := &Stats{Files: 1}
	var msgs []*domain.RawMessage

	mr := mbox.NewReader(f)
	for n := 1; ; n++ {
		r, err := mr.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return msgs, stats, fmt.Errorf("ingest: mbox read after %d messages: %w", n-1, err)
		}

		ref := fmt.Sprintf("%s#%d", filepath.Base(path), n)
		msg, err := l.parse(r)
		if err != nil {
			l.warnSkip(ref, err)
			stats.Skipped++
			continue
		}
		msgs = append(msgs, msg)
		stats.Parsed++
	}

	l.log.Info().
		Str("mbox", path).
		Int("parsed", stats.Parsed).
		Int("skipped", stats.Skipped).
		Msg("mbox ingest complete")
	return msgs, stats, nil
}

func (l *Loader) loadFile(path string) (*domain.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.parse(f)
}

func (l *Loader) warnSkip(ref string, err error) {
	l.log.Warn().Err(err).Str("source", ref).Msg("skipping unreadable message")
}
