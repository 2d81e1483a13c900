package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"p9e.in/hallfix/models"
)

// GormStore persists documents in a single JSONB-backed table and emulates
// live queries: every local write re-evaluates affected subscriptions, and a
// poll ticker picks up writes from other processes. Snapshots are only
// re-delivered when their content fingerprint changes.
type GormStore struct {
	db *gorm.DB

	mu     sync.Mutex
	subs   map[int]*gormSub
	nextID int

	pollInterval time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
}

type gormSub struct {
	query       Query
	onNext      func(Snapshot)
	onErr       func(error)
	fingerprint string
	failed      bool
}

// NewGormStore wraps an open gorm connection. Poll interval 0 disables
// background polling (in-process writes still notify).
func NewGormStore(db *gorm.DB, pollInterval time.Duration) *GormStore {
	s := &GormStore{
		db:           db,
		subs:         make(map[int]*gormSub),
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
	}
	if pollInterval > 0 {
		go s.pollLoop()
	}
	return s
}

// Close stops the polling loop.
func (s *GormStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Subscribe delivers the current snapshot immediately, then again after every
// change to the query's result set. A query the database cannot service is a
// terminal failure reported through onErr.
func (s *GormStore) Subscribe(q Query, onNext func(Snapshot), onErr func(error)) Unsubscribe {
	snapshot, err := s.evaluate(q)
	if err != nil {
		if onErr != nil {
			onErr(err)
		}
		return func() {}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = &gormSub{query: q, onNext: onNext, onErr: onErr, fingerprint: fingerprint(snapshot)}
	s.mu.Unlock()

	onNext(snapshot)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// WriteFields merges fields into the document at path, creating it if
// absent. A nil field value removes that key.
func (s *GormStore) WriteFields(ctx context.Context, path string, fields models.JSONMap) error {
	parent, id := models.SplitDocPath(path)
	if id == "" {
		return fmt.Errorf("docstore: %q is not a document path", path)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("path = ?", path).
			Limit(1).
			Find(&doc)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			doc = models.Document{
				Path:       path,
				DocID:      id,
				Parent:     parent,
				Collection: models.LeafCollection(parent),
				Fields:     models.JSONMap{},
			}
		}
		if doc.Fields == nil {
			doc.Fields = models.JSONMap{}
		}
		for key, value := range fields {
			if value == nil {
				delete(doc.Fields, key)
				continue
			}
			doc.Fields[key] = value
		}
		doc.CreatedAt = docCreatedAt(doc.Fields, doc.CreatedAt)
		return tx.Save(&doc).Error
	})
	if err != nil {
		return fmt.Errorf("docstore: write %s: %w", path, err)
	}

	s.notify(path)
	return nil
}

// CreateDoc adds a document with a generated id under collectionPath.
func (s *GormStore) CreateDoc(ctx context.Context, collectionPath string, fields models.JSONMap) (Doc, error) {
	id := uuid.NewString()
	path := collectionPath + "/" + id

	copied := make(models.JSONMap, len(fields))
	for key, value := range fields {
		copied[key] = value
	}

	doc := models.Document{
		Path:       path,
		DocID:      id,
		Parent:     collectionPath,
		Collection: models.LeafCollection(collectionPath),
		Fields:     copied,
		CreatedAt:  docCreatedAt(copied, time.Time{}),
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return Doc{}, fmt.Errorf("docstore: create in %s: %w", collectionPath, err)
	}

	s.notify(path)
	return Doc{ID: id, Path: path, Fields: copied}, nil
}

func (s *GormStore) Fetch(ctx context.Context, collectionPath string, limit int) (Snapshot, error) {
	return s.evaluate(Query{
		Collection:         collectionPath,
		OrderByCreatedDesc: true,
		Limit:              limit,
	})
}

func docCreatedAt(fields models.JSONMap, fallback time.Time) time.Time {
	if t := fields.FieldTime("createdAt"); !t.IsZero() {
		return t
	}
	if !fallback.IsZero() {
		return fallback
	}
	return time.Now()
}

func (s *GormStore) evaluate(q Query) (Snapshot, error) {
	tx := s.db.Model(&models.Document{})
	if q.Group {
		tx = tx.Where("collection = ?", q.Collection)
	} else {
		tx = tx.Where("parent = ?", q.Collection)
	}
	if q.OrderByCreatedDesc {
		tx = tx.Order("created_at DESC")
	} else {
		tx = tx.Order("path ASC")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []models.Document
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", q.Collection, err)
	}

	var out []Doc
	for _, row := range rows {
		if !q.matches(row.Fields) {
			continue
		}
		out = append(out, Doc{ID: row.DocID, Path: row.Path, Fields: row.Fields})
	}
	return q.order(out), nil
}

// notify re-runs subscriptions whose result set the changed path can affect.
func (s *GormStore) notify(changedPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.failed || !sub.query.matchesPath(changedPath) {
			continue
		}
		s.dispatchLocked(sub)
	}
}

func (s *GormStore) pollLoop() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			for _, sub := range s.subs {
				if !sub.failed {
					s.dispatchLocked(sub)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *GormStore) dispatchLocked(sub *gormSub) {
	snapshot, err := s.evaluate(sub.query)
	if err != nil {
		logrus.WithError(err).Warn("docstore: subscription query failed")
		sub.failed = true
		if sub.onErr != nil {
			sub.onErr(err)
		}
		return
	}
	fp := fingerprint(snapshot)
	if fp == sub.fingerprint {
		return
	}
	sub.fingerprint = fp
	sub.onNext(snapshot)
}

func fingerprint(snapshot Snapshot) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, doc := range snapshot {
		fmt.Fprint(h, doc.Path)
		_ = enc.Encode(doc.Fields)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
