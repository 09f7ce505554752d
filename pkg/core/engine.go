package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sortdb/pkg/catalog"
	"sortdb/pkg/common"
	"sortdb/pkg/config"
	"sortdb/pkg/currency"
	"sortdb/pkg/keyspec"
	"sortdb/pkg/monitor"
	"sortdb/pkg/search"
	"sortdb/pkg/sorter"
	"time"
)

// SortRequest names the file to sort and how to order it.
type SortRequest struct {
	Source     string
	Output     string // "" generates a name in the data dir
	RecordSize int
	KeySpec    string
	Algorithm  string // "" uses the configured default
}

// Engine ties the sort and search engines to the catalog of sorted files
// and the exchange rate cache.
type Engine struct {
	conf    *config.Config
	catalog *catalog.Catalog
	stats   *monitor.SortStats
	rates   *currency.RateCache
	now     func() time.Time
}

func NewEngine(cfg *config.Config) (*Engine, error) {
	if err := os.MkdirAll(cfg.Storage.Path, 0755); err != nil {
		return nil, common.IOErr("engine: create data dir", err)
	}

	cat, err := catalog.Open(filepath.Join(cfg.Storage.Path, cfg.Storage.Catalog))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		conf:    cfg,
		catalog: cat,
		stats:   monitor.NewSortStats(),
		rates:   currency.NewRateCache(32),
		now:     time.Now,
	}

	if cfg.Currency.RatesFile != "" {
		n, err := e.rates.LoadFile(cfg.Currency.RatesFile)
		if err != nil {
			cat.Close()
			return nil, fmt.Errorf("engine: load rates: %w", err)
		}
		log.Printf("[Engine] Loaded %d exchange rates from %s", n, cfg.Currency.RatesFile)
	}
	return e, nil
}

// Sort sorts req.Source and registers the output in the catalog. If the
// sort succeeds but registration fails, the sorted file is kept on disk and
// the error names it; it can be searched again once registered.
func (e *Engine) Sort(req SortRequest) (catalog.Entry, error) {
	algoName := req.Algorithm
	if algoName == "" {
		algoName = e.conf.Sort.Algorithm
	}
	algo, err := sorter.ParseAlgorithm(algoName)
	if err != nil {
		return catalog.Entry{}, err
	}

	spec, err := keyspec.Parse(req.KeySpec)
	if err != nil {
		return catalog.Entry{}, err
	}
	if spec.MinRecordSize() > req.RecordSize {
		return catalog.Entry{}, fmt.Errorf("engine: key %s needs %d byte records, got %d", spec, spec.MinRecordSize(), req.RecordSize)
	}

	src := req.Source
	if abs, err := filepath.Abs(src); err == nil {
		src = abs
	}
	out := req.Output
	if out == "" {
		out = filepath.Join(e.conf.Storage.Path, sorter.OutputName(src, algo, e.now()))
	}
	if abs, err := filepath.Abs(out); err == nil {
		out = abs
	}

	opts := sorter.Options{
		TempDir:        e.conf.Storage.TempDir,
		MaxMergePasses: e.conf.Sort.MaxMergePasses,
		ProgressEvery:  e.conf.Sort.ProgressEvery,
		Stats:          e.stats,
	}

	before := e.stats.Snapshot()
	start := time.Now()
	count, err := sorter.Sort(algo, src, out, req.RecordSize, spec.Compare, opts)
	if err != nil {
		return catalog.Entry{}, err
	}
	elapsed := time.Since(start)
	delta := e.stats.Snapshot().Sub(before)

	entry := catalog.Entry{
		Path:        out,
		Source:      src,
		RecordSize:  req.RecordSize,
		KeySpec:     spec.String(),
		Algorithm:   string(algo),
		RecordCount: count,
		Comparisons: delta.Comparisons,
		Elapsed:     elapsed,
		CreatedAt:   e.now(),
	}
	if err := e.catalog.Register(entry); err != nil {
		log.Printf("[Catalog] Failed to register %s, keeping the sorted file: %v", out, err)
		return catalog.Entry{}, fmt.Errorf("engine: sorted %s but did not catalogue it: %w", out, err)
	}
	log.Printf("[Engine] Sorted %s -> %s (%d records, %d comparisons, %v)", src, out, count, delta.Comparisons, elapsed)
	return entry, nil
}

// Search looks up a record whose key fields equal values in a catalogued
// sorted file.
func (e *Engine) Search(path string, values []string) (int64, bool, error) {
	f, spec, probe, err := e.open(path, values)
	if err != nil {
		return 0, false, err
	}
	defer f.Close()
	return f.Point(probe, spec.Compare)
}

// SearchRange returns the run of records whose key fields equal values.
func (e *Engine) SearchRange(path string, values []string) (search.Range, bool, error) {
	f, spec, probe, err := e.open(path, values)
	if err != nil {
		return search.Range{}, false, err
	}
	defer f.Close()
	return f.Range(probe, spec.Compare)
}

func (e *Engine) open(path string, values []string) (*search.File, *keyspec.Spec, []byte, error) {
	entry, err := e.Lookup(path)
	if err != nil {
		return nil, nil, nil, err
	}
	spec, err := keyspec.Parse(entry.KeySpec)
	if err != nil {
		return nil, nil, nil, err
	}
	probe, err := spec.Encode(values, entry.RecordSize)
	if err != nil {
		return nil, nil, nil, err
	}
	f, err := search.Open(entry.Path, entry.RecordSize)
	if err != nil {
		return nil, nil, nil, err
	}
	f.Stats = e.stats
	return f, spec, probe, nil
}

// Lookup returns the catalog entry for a sorted file.
func (e *Engine) Lookup(path string) (catalog.Entry, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	entry, ok, err := e.catalog.Get(path)
	if err != nil {
		return catalog.Entry{}, err
	}
	if !ok {
		return catalog.Entry{}, fmt.Errorf("engine: %s is not a catalogued sorted file", path)
	}
	return entry, nil
}

func (e *Engine) List() ([]catalog.Entry, error) {
	return e.catalog.List()
}

// Forget drops path from the catalog and, when removeFile is set, deletes
// the sorted file.
func (e *Engine) Forget(path string, removeFile bool) error {
	entry, err := e.Lookup(path)
	if err != nil {
		return err
	}
	if err := e.catalog.Remove(entry.Path); err != nil {
		return err
	}
	if removeFile {
		if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
			return common.IOErr("engine: remove", err)
		}
	}
	return nil
}

// ConvertToUSD converts amount using the loaded exchange rates.
func (e *Engine) ConvertToUSD(amount float64, currencyCode string, date common.Date) (float64, error) {
	return e.rates.Convert(amount, currencyCode, date)
}

func (e *Engine) Rates() *currency.RateCache {
	return e.rates
}

func (e *Engine) Stats() monitor.Snapshot {
	return e.stats.Snapshot()
}

func (e *Engine) Close() error {
	return e.catalog.Close()
}
