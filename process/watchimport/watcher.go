// Package watchimport imports contact files dropped into an inbox directory.
// Accepted files move to processed/, rejected ones to rejected/ next to a
// <name>.errors.json report. Files that fail for internal reasons stay in the
// inbox; Run retries them every Options.RetryInterval and Scan picks them up
// again on its next call.
package watchimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"contactos/pkg/apperr"
	"contactos/pkg/csvimport"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	ProcessedDir = "processed"
	RejectedDir  = "rejected"
	reportSuffix = ".errors.json"
)

// Importer is the part of csvimport.Importer the watcher needs.
type Importer interface {
	Import(ctx context.Context, req csvimport.Request) (*csvimport.Summary, error)
}

type Options struct {
	Dir        string
	UploaderID uint
	Workers    int
	// Debounce is how long a file must stay unchanged before it is imported.
	Debounce time.Duration
	// RetryInterval is how often Run retries files that failed internally.
	RetryInterval time.Duration
}

// Report is written next to a rejected file.
type Report struct {
	File           string            `json:"file"`
	Code           string            `json:"code"`
	Message        string            `json:"message"`
	MissingHeaders []string          `json:"missingHeaders,omitempty"`
	Errors         []apperr.RowError `json:"errors,omitempty"`
	RejectedAt     time.Time         `json:"rejectedAt"`
}

type Watcher struct {
	imp  Importer
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	failed map[string]struct{}
}

func New(imp Importer, opts Options) *Watcher {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Minute
	}
	return &Watcher{imp: imp, opts: opts, log: zap.L().Named("watch_import"), failed: map[string]struct{}{}}
}

func (w *Watcher) markFailed(name string, failed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if failed {
		w.failed[name] = struct{}{}
	} else {
		delete(w.failed, name)
	}
}

// takeFailed returns and forgets the files waiting for a retry.
func (w *Watcher) takeFailed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.failed))
	for name := range w.failed {
		out = append(out, name)
	}
	clear(w.failed)
	return out
}

func isSupported(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, reportSuffix) {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// Pending lists the importable files currently in the inbox, sorted by name.
func (w *Watcher) Pending() ([]string, error) {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupported(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// Scan imports every file already in the inbox using the worker pool.
func (w *Watcher) Scan(ctx context.Context) error {
	names, err := w.Pending()
	if err != nil {
		return err
	}
	w.log.Info("scanning inbox", zap.String("dir", w.opts.Dir), zap.Int("files", len(names)), zap.Int("workers", w.opts.Workers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Workers)
	for _, name := range names {
		g.Go(func() error { return w.ProcessFile(ctx, name) })
	}
	return g.Wait()
}

// Run scans the inbox once and then imports new files as they settle, until
// ctx is cancelled. Files that failed internally are queued again every
// opts.RetryInterval.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.opts.Dir); err != nil {
		return err
	}
	if err := w.Scan(ctx); err != nil {
		return err
	}
	w.log.Info("watching inbox",
		zap.String("dir", w.opts.Dir),
		zap.Duration("debounce", w.opts.Debounce),
		zap.Duration("retry_interval", w.opts.RetryInterval),
	)

	g, ctx := errgroup.WithContext(ctx)
	fileCh := make(chan string, 256)
	g.Go(func() error {
		defer close(fileCh)
		return w.debounce(ctx, fw, fileCh)
	})
	for i := 0; i < w.opts.Workers; i++ {
		g.Go(func() error {
			for name := range fileCh {
				if err := w.ProcessFile(ctx, name); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// debounce forwards a file once no write event touched it for opts.Debounce.
func (w *Watcher) debounce(ctx context.Context, fw *fsnotify.Watcher, out chan<- string) error {
	pending := map[string]time.Time{}
	ticker := time.NewTicker(w.opts.Debounce / 2)
	defer ticker.Stop()
	retry := time.NewTicker(w.opts.RetryInterval)
	defer retry.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			// only direct children; processed/ and rejected/ are ignored
			if filepath.Dir(ev.Name) != filepath.Clean(w.opts.Dir) {
				continue
			}
			name := filepath.Base(ev.Name)
			if isSupported(name) {
				pending[name] = time.Now()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-retry.C:
			for _, name := range w.takeFailed() {
				if _, queued := pending[name]; !queued {
					pending[name] = time.Time{}
				}
			}
		case now := <-ticker.C:
			for name, t := range pending {
				if now.Sub(t) < w.opts.Debounce {
					continue
				}
				delete(pending, name)
				select {
				case out <- name:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// ProcessFile imports one inbox file and files it away. Only context errors
// are returned; every other failure is logged.
func (w *Watcher) ProcessFile(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := w.log.With(zap.String("file", name))
	path := filepath.Join(w.opts.Dir, name)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		log.Warn("open failed", zap.Error(err))
		return nil
	}
	summary, err := w.imp.Import(ctx, csvimport.Request{File: f, FileName: name, UploaderID: w.opts.UploaderID})
	f.Close()

	w.markFailed(name, err != nil && apperr.KindOf(err) == apperr.KindInternal && ctx.Err() == nil)
	switch {
	case err == nil:
		if err := w.move(path, ProcessedDir, name); err != nil {
			log.Warn("failed to move processed file", zap.Error(err))
		}
		log.Info("imported", zap.Uint("upload_id", summary.UploadID), zap.Int("records", summary.RecordsImported))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case apperr.KindOf(err) == apperr.KindInternal:
		log.Error("import failed, left in inbox for retry", zap.Error(err))
	default:
		if err := w.reject(path, name, err); err != nil {
			log.Warn("failed to file rejected file", zap.Error(err))
		}
		log.Info("rejected", zap.String("code", apperr.KindOf(err).Code()))
	}
	return nil
}

func (w *Watcher) reject(path, name string, cause error) error {
	if err := w.move(path, RejectedDir, name); err != nil {
		return err
	}
	rep := Report{File: name, Code: apperr.KindOf(cause).Code(), Message: cause.Error(), RejectedAt: time.Now().UTC()}
	var ae *apperr.Error
	if errors.As(cause, &ae) {
		rep.Message = ae.Message
		rep.MissingHeaders = ae.MissingHeaders
		rep.Errors = ae.Rows
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.opts.Dir, RejectedDir, name+reportSuffix), b, 0o644)
}

// move renames src into dir/name under the inbox, falling back to copy+remove.
func (w *Watcher) move(src, dir, name string) error {
	dstDir := filepath.Join(w.opts.Dir, dir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dstDir, name)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
