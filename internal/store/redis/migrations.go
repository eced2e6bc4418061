package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/migration"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
)

// migrator reads through the watched connection and queues writes; the queue
// is flushed in a single MULTI/EXEC together with the new version.
// Steps therefore do not observe writes queued by earlier steps.
type migrator struct {
	tx   *redis.Tx
	keys keys
	log  logger.Logger
	now  func() time.Time
	ops  []func(redis.Pipeliner)
}

func (m *migrator) queue(op func(redis.Pipeliner)) {
	m.ops = append(m.ops, op)
}

var plan = migration.MustPlan(
	migration.Step[*migrator]{Version: 3, Name: "key verse bookmarks by id", Apply: keyVersesByID},
	migration.Step[*migrator]{Version: 4, Name: "add page bookmarks", Apply: addPageBookmarks},
)

// legacyDoc accepts both field spellings seen in early releases.
type legacyDoc struct {
	ID           string `json:"id"`
	VerseID      string `json:"verse_id"`
	VerseIDCamel string `json:"verseId"`
	CreatedAt    string `json:"created_at"`
	CreatedCamel string `json:"createdAt"`
}

func (d legacyDoc) capture() store.LegacyVerse {
	l := store.LegacyVerse{ID: d.ID, VerseID: d.VerseID, CreatedAt: d.CreatedAt}
	if l.VerseID == "" {
		l.VerseID = d.VerseIDCamel
	}
	if l.CreatedAt == "" {
		l.CreatedAt = d.CreatedCamel
	}
	return l
}

// keyVersesByID rewrites a legacy verse collection into the id-keyed hash.
// Early releases kept it as a list or set of JSON documents, or as a hash
// whose field names were not reliably the verse id; all three are rekeyed.
func keyVersesByID(ctx context.Context, m *migrator) error {
	key := m.keys.Collection(store.VerseCollection)

	kind, err := m.tx.Type(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", key, err)
	}

	// fields holds the hash field of each raw document; nil for lists and sets.
	var raw, fields []string
	switch kind {
	case "none":
		return nil
	case "list":
		raw, err = m.tx.LRange(ctx, key, 0, -1).Result()
	case "set":
		raw, err = m.tx.SMembers(ctx, key).Result()
	case "hash":
		var docs map[string]string
		docs, err = m.tx.HGetAll(ctx, key).Result()
		for _, f := range slices.Sorted(maps.Keys(docs)) {
			fields = append(fields, f)
			raw = append(raw, docs[f])
		}
	default:
		return fmt.Errorf("unexpected %s type %q for %s", store.VerseCollection, kind, key)
	}
	if err != nil {
		return fmt.Errorf("failed to capture legacy bookmarks: %w", err)
	}

	captured := make([]store.LegacyVerse, 0, len(raw))
	undecodable := 0
	for i, doc := range raw {
		var d legacyDoc
		if err := json.Unmarshal([]byte(doc), &d); err != nil {
			undecodable++
			continue
		}
		l := d.capture()
		if l.ID == "" && fields != nil {
			l.ID = fields[i]
		}
		captured = append(captured, l)
	}

	recs, skipped := store.RekeyAll(captured, m.now())
	if skipped+undecodable > 0 {
		m.log.Warn("dropping verse bookmarks without a usable key",
			logger.Int("count", skipped+undecodable))
	}

	values := make([]any, 0, 2*len(recs))
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", rec.ID, err)
		}
		values = append(values, rec.ID, data)
	}

	m.queue(func(pipe redis.Pipeliner) {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values...)
		}
	})

	m.log.Info("verse bookmarks rekeyed",
		logger.String("legacy_type", kind),
		logger.Int("captured", len(raw)),
		logger.Int("kept", len(recs)))
	return nil
}

// addPageBookmarks has nothing to create: a hash appears with its first field.
// It only refuses a key already used by something else.
func addPageBookmarks(ctx context.Context, m *migrator) error {
	key := m.keys.Collection(store.PageCollection)
	kind, err := m.tx.Type(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", key, err)
	}
	if kind != "none" && kind != "hash" {
		return fmt.Errorf("unexpected %s type %q for %s", store.PageCollection, kind, key)
	}
	return nil
}
