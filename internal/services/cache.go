package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/demand"
)

const cacheVersion = "v1"

var errCacheStale = errors.New("model cache is older than its sources")

// modelCacheFile names the snapshot after the sources and the options that
// shape the fitted forest. Scenario and fallback settings are not part of the
// key; loadModelCache applies the running ones to the restored model.
func (p *Pipeline) modelCacheFile(src dataset.Sources) string {
	h := sha256.New()
	for _, path := range sourcePaths(src) {
		h.Write([]byte(path))
		h.Write([]byte{0})
	}
	fmt.Fprintf(h, "%s|%+v|%v|%d|%+v",
		p.opts.Target, p.opts.Demand.Forest, p.opts.Demand.TestFraction,
		p.opts.Demand.MinTrainingRows, p.opts.Dataset.Calendar)
	name := "model_" + hex.EncodeToString(h.Sum(nil))[:16] + "_" + cacheVersion + ".gob"
	return filepath.Join(p.opts.CacheDir, name)
}

func sourcePaths(src dataset.Sources) []string {
	return []string{src.Transactions, src.Products, src.Shops, src.Customers}
}

func (p *Pipeline) saveModelCache(src dataset.Sources, m *demand.Model, res *demand.TrainResult) error {
	if p.opts.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.opts.CacheDir, 0755); err != nil {
		return err
	}

	filename := p.modelCacheFile(src)
	tmp, err := os.CreateTemp(p.opts.CacheDir, ".model-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := demand.SaveSnapshot(tmp, demand.Snapshot{Model: m, Result: res}); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

// loadModelCache returns the cached snapshot when its file is newer than
// every source. A nil model with a nil error means caching is disabled.
func (p *Pipeline) loadModelCache(src dataset.Sources) (demand.Snapshot, error) {
	if p.opts.CacheDir == "" {
		return demand.Snapshot{}, nil
	}

	filename := p.modelCacheFile(src)
	info, err := os.Stat(filename)
	if err != nil {
		return demand.Snapshot{}, err
	}
	for _, path := range sourcePaths(src) {
		srcInfo, err := os.Stat(path)
		if err != nil {
			return demand.Snapshot{}, err
		}
		if !srcInfo.ModTime().Before(info.ModTime()) {
			return demand.Snapshot{}, errCacheStale
		}
	}

	file, err := os.Open(filename)
	if err != nil {
		return demand.Snapshot{}, err
	}
	defer file.Close()

	snap, err := demand.LoadSnapshot(file)
	if err != nil {
		return demand.Snapshot{}, err
	}
	snap.Model.Options = p.opts.Demand
	return snap, nil
}
