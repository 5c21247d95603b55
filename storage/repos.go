package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ItemRecord is the persisted form of a retrieval item. Embedding holds
// little-endian float64 bytes, Meta a JSON document. DateCreated and
// LastAccess are epoch milliseconds.
type ItemRecord struct {
	ID          string
	Content     string
	Embedding   []byte
	Meta        string
	DateCreated int64
	LastAccess  int64
	AccessCount int64
}

// ItemResult is an ItemRecord scored against a query embedding.
type ItemResult struct {
	ItemRecord
	Score float64
}

// Repos is implemented by drivers that expose repositories.
type Repos interface {
	Item() ItemRepo
}

// ItemRepo is the per-backend persistence surface for items.
type ItemRepo interface {
	// Upsert inserts rec or, when the uuid exists, replaces content,
	// embedding, meta and last_accessed while keeping date_created and
	// access_count.
	Upsert(rec ItemRecord) error
	Get(id string) (ItemRecord, error)
	Delete(id string) error
	// List returns all records in creation order.
	List() ([]ItemRecord, error)
	Count() (int64, error)
	// Touch sets last_accessed and increments access_count for ids.
	Touch(ids []string, lastAccess int64) error
	// EvictLRU deletes the n records with the oldest last_accessed and
	// reports how many went.
	EvictLRU(n int) (int64, error)
	Clear() error
	// SearchByEmbedding scans up to scanLimit records, scores them by
	// cosine similarity against query and returns the top limit.
	SearchByEmbedding(query []float64, limit, scanLimit int) ([]ItemResult, error)
}

// SQL implementation

type sqlItemRepo struct {
	db      *sql.DB
	dialect string
}

func (r *sqlItemRepo) placeholder(n int) string {
	if r.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (r *sqlItemRepo) Upsert(rec ItemRecord) error {
	var query string
	if r.dialect == "postgres" {
		query = `INSERT INTO recall_item (uuid, content, embedding, meta, date_created, last_accessed, access_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT(uuid) DO UPDATE SET
			content = $8,
			embedding = $9,
			meta = $10,
			last_accessed = $11`
	} else {
		query = `INSERT INTO recall_item (uuid, content, embedding, meta, date_created, last_accessed, access_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(uuid) DO UPDATE SET
			content = ?,
			embedding = ?,
			meta = ?,
			last_accessed = ?`
	}
	_, err := r.db.Exec(
		query,
		rec.ID, rec.Content, rec.Embedding, rec.Meta, rec.DateCreated, rec.LastAccess, rec.AccessCount,
		rec.Content, rec.Embedding, rec.Meta, rec.LastAccess,
	)
	return err
}

func (r *sqlItemRepo) Get(id string) (ItemRecord, error) {
	query := "SELECT uuid, content, embedding, meta, date_created, last_accessed, access_count FROM recall_item WHERE uuid = " + r.placeholder(1)
	var rec ItemRecord
	err := r.db.QueryRow(query, id).Scan(
		&rec.ID, &rec.Content, &rec.Embedding, &rec.Meta,
		&rec.DateCreated, &rec.LastAccess, &rec.AccessCount,
	)
	return rec, err
}

func (r *sqlItemRepo) Delete(id string) error {
	query := "DELETE FROM recall_item WHERE uuid = " + r.placeholder(1)
	_, err := r.db.Exec(query, id)
	return err
}

func (r *sqlItemRepo) List() ([]ItemRecord, error) {
	rows, err := r.db.Query("SELECT uuid, content, embedding, meta, date_created, last_accessed, access_count FROM recall_item ORDER BY date_created ASC, uuid ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []ItemRecord
	for rows.Next() {
		var rec ItemRecord
		if err := rows.Scan(
			&rec.ID, &rec.Content, &rec.Embedding, &rec.Meta,
			&rec.DateCreated, &rec.LastAccess, &rec.AccessCount,
		); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *sqlItemRepo) Count() (int64, error) {
	var n int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM recall_item").Scan(&n)
	return n, err
}

func (r *sqlItemRepo) Touch(ids []string, lastAccess int64) error {
	var query string
	if r.dialect == "postgres" {
		query = "UPDATE recall_item SET last_accessed = $1, access_count = access_count + 1 WHERE uuid = $2"
	} else {
		query = "UPDATE recall_item SET last_accessed = ?, access_count = access_count + 1 WHERE uuid = ?"
	}
	for _, id := range ids {
		if _, err := r.db.Exec(query, lastAccess, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqlItemRepo) EvictLRU(n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	var query string
	if r.dialect == "postgres" {
		query = "DELETE FROM recall_item WHERE uuid IN (SELECT uuid FROM recall_item ORDER BY last_accessed ASC, date_created ASC LIMIT $1)"
	} else {
		query = "DELETE FROM recall_item WHERE uuid IN (SELECT uuid FROM recall_item ORDER BY last_accessed ASC, date_created ASC LIMIT ?)"
	}
	res, err := r.db.Exec(query, n)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sqlItemRepo) Clear() error {
	_, err := r.db.Exec("DELETE FROM recall_item")
	return err
}

func (r *sqlItemRepo) SearchByEmbedding(query []float64, limit, scanLimit int) ([]ItemResult, error) {
	q := "SELECT uuid, content, embedding, meta, date_created, last_accessed, access_count FROM recall_item LIMIT " + r.placeholder(1)
	rows, err := r.db.Query(q, scanLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ItemResult
	for rows.Next() {
		var rec ItemRecord
		if err := rows.Scan(
			&rec.ID, &rec.Content, &rec.Embedding, &rec.Meta,
			&rec.DateCreated, &rec.LastAccess, &rec.AccessCount,
		); err != nil {
			continue
		}
		emb := DecodeEmbedding(rec.Embedding)
		results = append(results, ItemResult{
			ItemRecord: rec,
			Score:      cosineSimilarity(query, emb),
		})
	}

	sortAndTruncate(&results, limit)
	return results, nil
}

// sortAndTruncate orders results by score descending, breaking ties by
// recency, and trims to limit.
func sortAndTruncate(results *[]ItemResult, limit int) {
	rs := *results
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Score == rs[j].Score {
			return rs[i].LastAccess > rs[j].LastAccess
		}
		return rs[i].Score > rs[j].Score
	})
	if len(rs) > limit {
		rs = rs[:limit]
	}
	*results = rs
}

// EncodeEmbedding serializes a vector into little-endian float64 bytes.
func EncodeEmbedding(v []float64) []byte {
	if len(v) == 0 {
		return nil
	}
	b := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(f))
	}
	return b
}

// DecodeEmbedding converts little-endian float64 bytes back to a vector.
func DecodeEmbedding(b []byte) []float64 {
	if len(b) == 0 || len(b)%8 != 0 {
		return nil
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SQL driver repos

type sqlRepos struct {
	item ItemRepo
}

func (d *SQLDriver) Item() ItemRepo {
	if d.repos == nil {
		d.repos = &sqlRepos{
			item: &sqlItemRepo{db: d.db(), dialect: d.dialect},
		}
	}
	return d.repos.item
}

// MongoDB implementation

const mongoOpTimeout = 5 * time.Second

type mongoItemRepo struct {
	db *mongo.Database
}

type mongoItemDoc struct {
	ID          string `bson:"uuid"`
	Content     string `bson:"content"`
	Embedding   []byte `bson:"embedding"`
	Meta        string `bson:"meta"`
	DateCreated int64  `bson:"date_created"`
	LastAccess  int64  `bson:"last_accessed"`
	AccessCount int64  `bson:"access_count"`
}

func (doc mongoItemDoc) record() ItemRecord {
	return ItemRecord{
		ID:          doc.ID,
		Content:     doc.Content,
		Embedding:   doc.Embedding,
		Meta:        doc.Meta,
		DateCreated: doc.DateCreated,
		LastAccess:  doc.LastAccess,
		AccessCount: doc.AccessCount,
	}
}

func (r *mongoItemRepo) Upsert(rec ItemRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	coll := r.db.Collection("recall_item")
	filter := bson.M{"uuid": rec.ID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"date_created": rec.DateCreated,
			"access_count": rec.AccessCount,
		},
		"$set": bson.M{
			"content":       rec.Content,
			"embedding":     rec.Embedding,
			"meta":          rec.Meta,
			"last_accessed": rec.LastAccess,
		},
	}
	_, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *mongoItemRepo) Get(id string) (ItemRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	coll := r.db.Collection("recall_item")
	var doc mongoItemDoc
	if err := coll.FindOne(ctx, bson.M{"uuid": id}).Decode(&doc); err != nil {
		return ItemRecord{}, err
	}
	return doc.record(), nil
}

func (r *mongoItemRepo) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	coll := r.db.Collection("recall_item")
	_, err := coll.DeleteOne(ctx, bson.M{"uuid": id})
	return err
}

func (r *mongoItemRepo) List() ([]ItemRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	coll := r.db.Collection("recall_item")
	cur, err := coll.Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "date_created", Value: 1}, {Key: "uuid", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []ItemRecord
	for cur.Next(ctx) {
		var doc mongoItemDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		recs = append(recs, doc.record())
	}
	return recs, cur.Err()
}

func (r *mongoItemRepo) Count() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	coll := r.db.Collection("recall_item")
	return coll.CountDocuments(ctx, bson.M{})
}

func (r *mongoItemRepo) Touch(ids []string, lastAccess int64) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	coll := r.db.Collection("recall_item")
	_, err := coll.UpdateMany(
		ctx,
		bson.M{"uuid": bson.M{"$in": ids}},
		bson.M{
			"$set": bson.M{"last_accessed": lastAccess},
			"$inc": bson.M{"access_count": int64(1)},
		},
	)
	return err
}

func (r *mongoItemRepo) EvictLRU(n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	coll := r.db.Collection("recall_item")
	cur, err := coll.Find(
		ctx,
		bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "last_accessed", Value: 1}, {Key: "date_created", Value: 1}}).
			SetLimit(int64(n)).
			SetProjection(bson.M{"uuid": 1}),
	)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"uuid"`
		}
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		ids = append(ids, doc.ID)
	}
	if len(ids) == 0 {
		return 0, cur.Err()
	}

	res, err := coll.DeleteMany(ctx, bson.M{"uuid": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *mongoItemRepo) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	coll := r.db.Collection("recall_item")
	_, err := coll.DeleteMany(ctx, bson.M{})
	return err
}

func (r *mongoItemRepo) SearchByEmbedding(query []float64, limit, scanLimit int) ([]ItemResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	coll := r.db.Collection("recall_item")
	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetLimit(int64(scanLimit)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var results []ItemResult
	for cur.Next(ctx) {
		var doc mongoItemDoc
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		emb := DecodeEmbedding(doc.Embedding)
		results = append(results, ItemResult{
			ItemRecord: doc.record(),
			Score:      cosineSimilarity(query, emb),
		})
	}

	sortAndTruncate(&results, limit)
	return results, nil
}

// wire Mongo repos into MongoDriver

func (d *MongoDriver) Item() ItemRepo {
	return &mongoItemRepo{db: d.db()}
}
