package catalog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"linkatlas/internal/article"
	"linkatlas/internal/mathx"
)

// articlePrefix namespaces catalog keys from anything else sharing the same
// badger directory.
const articlePrefix = byte(0x01)

// BadgerCatalog is the local, disk-backed Catalog used in place of the
// managed vector index for development, testing, and single-node
// deployments. Every article is stored whole (embedding included) as a JSON
// value keyed by postId; Query is a brute-force cosine scan over ListAll,
// which is the right tradeoff at the scale of one content site's catalog —
// there is no IVF/HNSW index to maintain or go stale.
type BadgerCatalog struct {
	db *badger.DB
}

// BadgerOptions configures the local catalog store.
type BadgerOptions struct {
	// DataDir is the directory for storing data files. Required unless
	// InMemory is set.
	DataDir string
	// InMemory runs badger in memory-only mode, for tests.
	InMemory bool
}

// NewBadgerCatalog opens (or creates) a local catalog at opts.DataDir.
func NewBadgerCatalog(opts BadgerOptions) (*BadgerCatalog, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir).WithLogger(nil)
	if opts.InMemory {
		// badger refuses a directory in memory-only mode, so DataDir is
		// ignored here.
		badgerOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("catalog: open badger: %w", err)
	}
	return &BadgerCatalog{db: db}, nil
}

// Close releases the underlying badger handle.
func (c *BadgerCatalog) Close() error {
	return c.db.Close()
}

func articleKey(postID int64) []byte {
	key := make([]byte, 9)
	key[0] = articlePrefix
	binary.BigEndian.PutUint64(key[1:], uint64(postID))
	return key
}

func (c *BadgerCatalog) Upsert(ctx context.Context, a article.Article) error {
	a.Normalize()
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("catalog: marshal article %d: %w", a.PostID, err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(articleKey(a.PostID), data)
	})
}

func (c *BadgerCatalog) Get(ctx context.Context, postID int64) (article.Article, error) {
	var a article.Article
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(articleKey(postID))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		})
	})
	if err != nil {
		return article.Article{}, err
	}
	return a, nil
}

func (c *BadgerCatalog) Delete(ctx context.Context, postID int64) error {
	return c.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(articleKey(postID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Query scans every stored article, scores it against vector with
// mathx.CosineSimilarity, and returns the topK highest excluding any id in
// exclude. Ties break on postId ascending for a stable order.
func (c *BadgerCatalog) Query(ctx context.Context, vector []float32, topK int, exclude map[int64]bool) ([]Candidate, error) {
	all, err := c.ListAll(ctx, 0)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(all))
	for _, a := range all {
		if exclude[a.PostID] {
			continue
		}
		if len(a.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			Article: a,
			Score:   mathx.CosineSimilarity(vector, a.Embedding),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Article.PostID < candidates[j].Article.PostID
	})
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// ListAll returns every stored article in postId order. limit<=0 means all.
func (c *BadgerCatalog) ListAll(ctx context.Context, limit int) ([]article.Article, error) {
	var out []article.Article
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte{articlePrefix}})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			item := it.Item()
			var a article.Article
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			}); err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list all: %w", err)
	}
	return out, nil
}

// ListPillars returns every article with IsPillar==true.
func (c *BadgerCatalog) ListPillars(ctx context.Context) ([]article.Article, error) {
	all, err := c.ListAll(ctx, 0)
	if err != nil {
		return nil, err
	}
	pillars := make([]article.Article, 0)
	for _, a := range all {
		if a.IsPillar {
			pillars = append(pillars, a)
		}
	}
	return pillars, nil
}

// IncrementInboundLinks bumps InboundLinkCount by one via read-modify-write
// inside a single badger transaction.
func (c *BadgerCatalog) IncrementInboundLinks(ctx context.Context, postID int64) error {
	return c.db.Update(func(txn *badger.Txn) error {
		key := articleKey(postID)
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var a article.Article
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		}); err != nil {
			return err
		}
		a.InboundLinkCount++
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

var _ Catalog = (*BadgerCatalog)(nil)
