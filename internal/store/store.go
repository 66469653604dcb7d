package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/korjavin/dricalc/internal/dataset"
)

const (
	pebbleDir = "pebble"
	bleveDir  = "bleve"

	batchSize = 5_000
)

var (
	keyColumns = []byte("m/columns")
	keySources = []byte("m/sources")
)

// recordKey keeps records in load order under the "r/" prefix.
func recordKey(ord int) []byte {
	return []byte(fmt.Sprintf("r/%08d", ord))
}

// bleveDoc is the document structure indexed into Bleve.
type bleveDoc struct {
	NameFolded string `json:"name_folded"`
}

// Store wraps a Pebble KV store holding a reconciled dataset snapshot and a
// Bleve index over its folded sample names.
type Store struct {
	db    *pebble.DB
	index bleve.Index
}

// OpenReadOnly opens an existing data directory in read-only mode (for the server).
func OpenReadOnly(dataDir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(dataDir, pebbleDir), &pebble.Options{
		ReadOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open pebble (read-only): %w", err)
	}

	idx, err := bleve.Open(filepath.Join(dataDir, bleveDir))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open bleve index: %w", err)
	}

	return &Store{db: db, index: idx}, nil
}

// Create initialises a fresh data directory for the importer.
// The pebble and bleve sub-directories must not already exist.
func Create(dataDir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(dataDir, pebbleDir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("create pebble: %w", err)
	}

	idx, err := bleve.New(filepath.Join(dataDir, bleveDir), newBleveMapping())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bleve index: %w", err)
	}

	return &Store{db: db, index: idx}, nil
}

// OpenMem creates a store that lives only in memory. The server uses it when
// it loads raw sources instead of a snapshot, so suggestions still work.
func OpenMem() (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("create pebble (mem): %w", err)
	}

	idx, err := bleve.NewMemOnly(newBleveMapping())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bleve index (mem): %w", err)
	}

	return &Store{db: db, index: idx}, nil
}

// Close releases all resources held by the store.
func (s *Store) Close() error {
	var errs []string
	if err := s.index.Close(); err != nil {
		errs = append(errs, "bleve: "+err.Error())
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, "pebble: "+err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("store close: %s", strings.Join(errs, "; "))
	}
	return nil
}

// PutDataset writes the column header, the source list and every record,
// and indexes the folded names for suggestions.
func (s *Store) PutDataset(ds *dataset.Dataset) error {
	meta := s.db.NewBatch()
	_ = meta.Set(keyColumns, encodeStrings(ds.Columns()), nil)
	_ = meta.Set(keySources, encodeStrings(ds.Sources()), nil)
	if err := meta.Commit(pebble.Sync); err != nil {
		meta.Close()
		return fmt.Errorf("pebble meta commit: %w", err)
	}
	meta.Close()

	batch := s.NewWriteBatch()
	for i, r := range ds.Records() {
		batch.Put(i, r)
		if batch.Len() >= batchSize {
			if err := batch.Flush(); err != nil {
				_ = batch.Close()
				return err
			}
		}
	}
	return batch.Close()
}

// WriteBatch accumulates records for batched writes to Pebble and Bleve.
type WriteBatch struct {
	s     *Store
	pb    *pebble.Batch
	bb    *bleve.Batch
	count int
}

// NewWriteBatch creates a new WriteBatch backed by the given store.
func (s *Store) NewWriteBatch() *WriteBatch {
	return &WriteBatch{
		s:  s,
		pb: s.db.NewBatch(),
		bb: s.index.NewBatch(),
	}
}

// Put accumulates record ord in the batch without flushing. Records with
// neither a sample nor a common name are stored but not indexed.
func (b *WriteBatch) Put(ord int, r dataset.Record) {
	key := recordKey(ord)
	_ = b.pb.Set(key, encodeRecord(r), nil)
	if folded := FoldName(r.SampleName + " " + r.CommonName); folded != "" {
		_ = b.bb.Index(string(key), bleveDoc{NameFolded: folded})
	}
	b.count++
}

// Flush commits both batches to the underlying stores and resets accumulators.
func (b *WriteBatch) Flush() error {
	if err := b.pb.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble batch commit: %w", err)
	}
	if err := b.s.index.Batch(b.bb); err != nil {
		return fmt.Errorf("bleve batch commit: %w", err)
	}
	b.pb.Reset()
	b.bb = b.s.index.NewBatch()
	b.count = 0
	return nil
}

// Close flushes any pending data and releases the pebble batch memory.
func (b *WriteBatch) Close() error {
	if b.count > 0 {
		if err := b.Flush(); err != nil {
			b.pb.Close()
			return err
		}
	}
	b.pb.Close()
	return nil
}

// Len returns the number of records accumulated since the last flush.
func (b *WriteBatch) Len() int {
	return b.count
}

// LoadDataset reads the snapshot back, records in their original order.
func (s *Store) LoadDataset() (*dataset.Dataset, error) {
	colsRaw, err := s.get(keyColumns)
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	columns, err := decodeStrings(colsRaw)
	if err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}
	srcRaw, err := s.get(keySources)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	sources, err := decodeStrings(srcRaw)
	if err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("r/"),
		UpperBound: []byte("r0"),
	})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer iter.Close()

	var records []dataset.Record
	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}

	return dataset.Restore(columns, records, sources)
}

// get returns a copy of the value stored at key.
func (s *Store) get(key []byte) ([]byte, error) {
	val, closer, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// val is only valid until closer.Close(); copy it
	data := make([]byte, len(val))
	copy(data, val)
	return data, nil
}

// Suggest runs a Bleve query over folded names and returns the distinct
// sample names of the best hits. limit caps the number of results (max 50).
func (s *Store) Suggest(q string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	folded := FoldName(q)
	if folded == "" {
		return nil, nil
	}

	boolQ := bleve.NewBooleanQuery()

	// exact / prefix (high boost)
	phraseQ := bleve.NewMatchPhraseQuery(folded)
	phraseQ.SetField("name_folded")
	phraseQ.SetBoost(10)
	boolQ.AddShould(phraseQ)

	prefixQ := bleve.NewPrefixQuery(folded)
	prefixQ.SetField("name_folded")
	prefixQ.SetBoost(5)
	boolQ.AddShould(prefixQ)

	// per-token fuzzy; CJK names are short, so count runes not bytes
	for _, token := range strings.Fields(folded) {
		n := utf8.RuneCountInString(token)
		if n < 2 {
			continue
		}
		fuzz := 1
		if n >= 6 {
			fuzz = 2
		}
		fuzzyQ := bleve.NewFuzzyQuery(token)
		fuzzyQ.SetField("name_folded")
		fuzzyQ.Fuzziness = fuzz
		boolQ.AddShould(fuzzyQ)
	}

	// hits can share a sample name, so over-fetch before de-duplicating
	req := bleve.NewSearchRequestOptions(boolQ, limit*4, 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	var (
		names []string
		seen  = make(map[string]struct{})
	)
	for _, hit := range res.Hits {
		data, err := s.get([]byte(hit.ID))
		if err != nil {
			continue
		}
		rec, err := decodeRecord(data)
		if err != nil {
			continue
		}
		if rec.SampleName == "" {
			continue
		}
		if _, dup := seen[rec.SampleName]; dup {
			continue
		}
		seen[rec.SampleName] = struct{}{}
		names = append(names, rec.SampleName)
		if len(names) == limit {
			break
		}
	}
	return names, nil
}

// newBleveMapping builds the index mapping used when creating a fresh index.
func newBleveMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = simple.Name
	textField.Store = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name_folded", textField)

	im.DefaultMapping = docMapping
	return im
}
