package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/scambier/omnisearch/docstore"
	"github.com/scambier/omnisearch/search"
)

var indexableExtensions = map[string]struct{}{
	".md":     {},
	".txt":    {},
	".org":    {},
	".canvas": {},
	".pdf":    {},
	".docx":   {},
	".odt":    {},
	".rtf":    {},
	".xml":    {},
	".html":   {},
}

// DocRegistry keeps the index in sync with the files under root. It also
// indexes placeholder notes for wikilink targets that do not exist yet,
// so dangling links remain findable by name.
type DocRegistry struct {
	log              *slog.Logger
	root             string
	mergeEventsDelay time.Duration
	engine           *search.Engine
	repo             *docstore.Repository

	mu           sync.Mutex
	placeholders map[string]map[string]struct{} // target path -> referrer paths
}

func NewDocRegistry(root string, mergeEventsDelay time.Duration, engine *search.Engine, repo *docstore.Repository, log *slog.Logger) *DocRegistry {
	return &DocRegistry{
		log:              log,
		root:             root,
		mergeEventsDelay: mergeEventsDelay,
		engine:           engine,
		repo:             repo,
		placeholders:     make(map[string]map[string]struct{}),
	}
}

// Sync walks the document root and applies the diff between disk and
// index: new and modified files are indexed, vanished ones removed.
func (dr *DocRegistry) Sync(ctx context.Context) error {
	refs, err := dr.collectRefs()
	if err != nil {
		return err
	}

	diff := dr.engine.GetDiff(refs)
	dr.log.Info("syncing document index",
		"total", len(refs), "add", len(diff.ToAdd), "remove", len(diff.ToRemove))

	dr.engine.RemoveFromPaths(diff.ToRemove)
	if err := dr.engine.AddFromPaths(ctx, diff.ToAdd); err != nil {
		return fmt.Errorf("failed to index documents: %w", err)
	}

	for _, path := range diff.ToRemove {
		dr.dropReferrer(path)
	}
	for _, ref := range diff.ToAdd {
		dr.refreshLinks(ctx, ref.Path)
	}
	return nil
}

func (dr *DocRegistry) collectRefs() ([]docstore.DocumentRef, error) {
	var refs []docstore.DocumentRef
	err := filepath.WalkDir(dr.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dr.root {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := indexableExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		refs = append(refs, docstore.DocumentRef{Path: path, Mtime: info.ModTime().UnixMilli()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk document root: %w", err)
	}
	return refs, nil
}

// refreshLinks indexes a placeholder for every wikilink target of path
// that resolves to no real file.
func (dr *DocRegistry) refreshLinks(ctx context.Context, path string) {
	if !strings.HasSuffix(strings.ToLower(path), ".md") {
		return
	}
	doc, err := dr.repo.GetDocument(ctx, path)
	if err != nil || doc == nil {
		return
	}

	dr.mu.Lock()
	defer dr.mu.Unlock()
	for _, link := range doc.Links {
		target := dr.resolveLink(link)
		if dr.engine.HasDocument(target) && dr.placeholders[target] == nil {
			continue
		}
		if _, err := os.Stat(target); err == nil {
			continue
		}
		if dr.placeholders[target] == nil {
			placeholder := docstore.NewPlaceholder(link, path)
			placeholder.Path = target
			if err := dr.engine.IndexDocument(placeholder); err != nil {
				dr.log.Warn("failed to index placeholder", "target", target, "error", err)
				continue
			}
			dr.placeholders[target] = make(map[string]struct{})
		}
		dr.placeholders[target][path] = struct{}{}
	}
}

// dropReferrer forgets path as a placeholder referrer and removes any
// placeholder nothing links to anymore.
func (dr *DocRegistry) dropReferrer(path string) {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	for target, referrers := range dr.placeholders {
		delete(referrers, path)
		if len(referrers) == 0 {
			dr.engine.RemoveFromPaths([]string{target})
			delete(dr.placeholders, target)
		}
	}
}

// resolvePlaceholder removes the placeholder for target once a real file
// with that path appears.
func (dr *DocRegistry) resolvePlaceholder(path string) {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	if _, ok := dr.placeholders[path]; ok {
		dr.engine.RemoveFromPaths([]string{path})
		delete(dr.placeholders, path)
	}
}

func (dr *DocRegistry) resolveLink(link string) string {
	if filepath.Ext(link) == "" {
		link += ".md"
	}
	return filepath.Join(dr.root, link)
}

// Watch follows filesystem events under root and keeps the index current.
// Bursts of events are merged for mergeEventsDelay before being applied.
func (dr *DocRegistry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := dr.watchTree(watcher, dr.root); err != nil {
		return err
	}

	pending := make(map[string]fsnotify.Op)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			dr.log.Warn("file watcher error", "error", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := dr.watchTree(watcher, event.Name); err != nil {
						dr.log.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !dr.indexable(event.Name) {
				continue
			}
			pending[event.Name] |= event.Op
			if timer == nil {
				timer = time.NewTimer(dr.mergeEventsDelay)
				timerC = timer.C
			} else {
				timer.Reset(dr.mergeEventsDelay)
			}
		case <-timerC:
			dr.applyEvents(ctx, pending)
			pending = make(map[string]fsnotify.Op)
			timer = nil
			timerC = nil
		}
	}
}

func (dr *DocRegistry) applyEvents(ctx context.Context, events map[string]fsnotify.Op) {
	for path, op := range events {
		switch {
		case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename):
			if _, err := os.Stat(path); err == nil {
				// The file was recreated within the merge window.
				dr.markChanged(ctx, path)
				continue
			}
			dr.log.Debug("removing document", "path", path)
			dr.engine.RemoveFromPaths([]string{path})
			dr.dropReferrer(path)
		case op.Has(fsnotify.Create) || op.Has(fsnotify.Write):
			dr.markChanged(ctx, path)
		}
	}
}

func (dr *DocRegistry) markChanged(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	dr.log.Debug("reindexing document", "path", path)
	dr.resolvePlaceholder(path)
	dr.engine.MarkForReindex(docstore.DocumentRef{Path: path, Mtime: info.ModTime().UnixMilli()})
	dr.refreshLinks(ctx, path)
}

func (dr *DocRegistry) watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

func (dr *DocRegistry) indexable(path string) bool {
	_, ok := indexableExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
