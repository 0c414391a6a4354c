package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quarkfin/qwallet-web/internal/core/domain"
	"github.com/quarkfin/qwallet-web/internal/core/ports"
)

const (
	sessionCollection = "sessions"
	ttlIndexName      = "session_ttl"
	defaultSessionTTL = 24 * time.Hour

	codeIndexOptionsConflict  = 85
	codeIndexKeySpecsConflict = 86
)

type SessionStore struct {
	coll *mongo.Collection
	ttl  time.Duration
}

var _ ports.SessionStore = (*SessionStore)(nil)

func NewSessionStore(db *mongo.Database, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{coll: db.Collection(sessionCollection), ttl: ttl}
}

type sessionDoc struct {
	ID          string      `bson:"_id"`
	AccessToken string      `bson:"accessToken"`
	User        domain.User `bson:"user"`
	Version     int64       `bson:"version"`
	UpdatedAt   time.Time   `bson:"updatedAt"`
}

// EnsureIndexes creates the TTL index that expires idle sessions. When the
// index already exists with another expiry, collMod moves it to the
// configured TTL.
func (s *SessionStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updatedAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(s.ttlSeconds()).SetName(ttlIndexName),
	})
	if err == nil {
		return nil
	}

	var cmdErr mongo.CommandError
	if !errors.As(err, &cmdErr) || (cmdErr.Code != codeIndexOptionsConflict && cmdErr.Code != codeIndexKeySpecsConflict) {
		return fmt.Errorf("create session ttl index: %w", err)
	}

	cmd := bson.D{
		{Key: "collMod", Value: sessionCollection},
		{Key: "index", Value: bson.D{
			{Key: "name", Value: ttlIndexName},
			{Key: "expireAfterSeconds", Value: s.ttlSeconds()},
		}},
	}
	if err := s.coll.Database().RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("update session ttl index: %w", err)
	}
	return nil
}

func (s *SessionStore) ttlSeconds() int32 {
	return int32(s.ttl.Seconds())
}

func (s *SessionStore) Get(ctx context.Context, sid string) (*domain.Session, error) {
	var doc sessionDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": sid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &domain.Session{AccessToken: doc.AccessToken, User: doc.User, Version: doc.Version}, nil
}

// Put inserts the first version of a session and afterwards only updates the
// document whose version still matches the one the caller read.
func (s *SessionStore) Put(ctx context.Context, sid string, session *domain.Session) error {
	now := time.Now().UTC()

	if session.Version == 0 {
		doc := sessionDoc{ID: sid, AccessToken: session.AccessToken, User: session.User, Version: 1, UpdatedAt: now}
		if _, err := s.coll.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrStaleSession
			}
			return fmt.Errorf("insert session: %w", err)
		}
		session.Version = 1
		return nil
	}

	filter := bson.M{"_id": sid, "version": session.Version}
	update := bson.M{
		"$set": bson.M{
			"accessToken": session.AccessToken,
			"user":        session.User,
			"updatedAt":   now,
		},
		"$inc": bson.M{"version": 1},
	}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrStaleSession
	}
	session.Version++
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": sid}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}
