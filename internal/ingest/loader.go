package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Paramfpv/lev/internal/log"
)

// Loader reads protocol documents from a directory.
type Loader struct {
	dir    string
	logger log.Logger
}

// NewLoader creates a Loader for the given corpus directory.
func NewLoader(dir string, logger log.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// Load returns every .txt document in the corpus directory whose file name
// is not in exclude. A missing directory or an empty result is a normal
// "nothing to do" outcome, not an error. Unreadable files are logged and
// skipped; one bad file never aborts the load.
func (l *Loader) Load(exclude map[string]struct{}) []Document {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("protocols directory not found", "dir", l.dir)
		} else {
			l.logger.Error("reading protocols directory", "dir", l.dir, "error", err)
		}
		return nil
	}

	var docs []Document
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		if _, done := exclude[name]; done {
			continue
		}

		content, err := os.ReadFile(filepath.Join(l.dir, name))
		if err != nil {
			l.logger.Warn("skipping unreadable document", "file", name, "error", err)
			continue
		}

		docs = append(docs, Document{Source: name, Content: string(content)})
	}

	if len(docs) > 0 {
		l.logger.Info("loaded new documents", "count", len(docs), "dir", l.dir)
	} else {
		l.logger.Info("no new documents to load", "dir", l.dir)
	}
	return docs
}
