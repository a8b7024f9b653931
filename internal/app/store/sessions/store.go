// internal/app/store/sessions/store.go
package sessions

// Terminology:
//   - session id / sid: the opaque id stored in the browser's cookie
//   - auth session: the backend tokens held on behalf of that browser

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// End reasons
const (
	EndLogout   = "logout"
	EndInactive = "inactive"
)

// ErrNotFound is returned when no open session has the id.
var ErrNotFound = errors.New("browser session not found")

// AuthTokens is the stored form of a backend session.
type AuthTokens struct {
	AccessToken  string            `bson:"access_token"`
	RefreshToken string            `bson:"refresh_token"`
	ExpiresAt    time.Time         `bson:"expires_at"`
	UserID       string            `bson:"user_id"`
	Email        string            `bson:"email"`
	Metadata     map[string]string `bson:"metadata,omitempty"`
	UserCreated  time.Time         `bson:"user_created_at"`
	ConfirmedAt  *time.Time        `bson:"confirmed_at,omitempty"`
}

func tokensFrom(s *backend.Session) *AuthTokens {
	return &AuthTokens{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		UserID:       s.User.ID,
		Email:        s.User.Email,
		Metadata:     s.User.Metadata,
		UserCreated:  s.User.CreatedAt,
		ConfirmedAt:  s.User.ConfirmedAt,
	}
}

// Session returns the backend session the tokens describe.
func (t *AuthTokens) Session() *backend.Session {
	return &backend.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt,
		User: backend.User{
			ID:          t.UserID,
			Email:       t.Email,
			Metadata:    t.Metadata,
			CreatedAt:   t.UserCreated,
			ConfirmedAt: t.ConfirmedAt,
		},
	}
}

// Session is one browser's server-side session record.
type Session struct {
	ID string `bson:"_id"`

	// Auth is nil while the browser is signed out.
	Auth *AuthTokens `bson:"auth,omitempty"`

	// Timing
	CreatedAt    time.Time  `bson:"created_at"`
	LastActiveAt time.Time  `bson:"last_active_at"`
	ClosedAt     *time.Time `bson:"closed_at,omitempty"`

	CurrentPage string `bson:"current_page,omitempty"`
	EndReason   string `bson:"end_reason,omitempty"` // "logout", "inactive", ""

	// Context
	IP        string `bson:"ip"`
	UserAgent string `bson:"user_agent,omitempty"`
}

// SignedIn reports whether the browser currently holds an auth session.
func (s *Session) SignedIn() bool { return s.Auth != nil }

// Store manages browser sessions.
type Store struct {
	c *mongo.Collection
}

// New creates a new sessions Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("browser_sessions")}
}

// Create opens a new, signed-out session.
func (s *Store) Create(ctx context.Context, ip, userAgent string) (Session, error) {
	now := time.Now().UTC()
	sess := Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActiveAt: now,
		IP:           ip,
		UserAgent:    userAgent,
	}
	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// GetOpen retrieves a session that has not been closed.
func (s *Store) GetOpen(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.c.FindOne(ctx, bson.M{"_id": id, "closed_at": nil}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Session{}, ErrNotFound
	}
	return sess, err
}

// SetAuth stores (or replaces) the auth session held by a browser.
func (s *Store) SetAuth(ctx context.Context, id string, auth *backend.Session) error {
	if auth == nil {
		return s.ClearAuth(ctx, id)
	}
	return s.update(ctx, id, bson.M{"$set": bson.M{
		"auth":           tokensFrom(auth),
		"last_active_at": time.Now().UTC(),
	}})
}

// ClearAuth drops the auth session but keeps the browser session open.
func (s *Store) ClearAuth(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{
		"$unset": bson.M{"auth": ""},
		"$set":   bson.M{"last_active_at": time.Now().UTC()},
	})
}

func (s *Store) update(ctx context.Context, id string, upd bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "closed_at": nil}, upd)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateResult contains the result of a Touch operation.
type UpdateResult struct {
	Updated      bool   // Whether the session was updated
	PreviousPage string // The previous current_page value (before update)
}

// Touch updates the last active timestamp and current page.
// Only open sessions are updated.
func (s *Store) Touch(ctx context.Context, id, currentPage string) (UpdateResult, error) {
	update := bson.M{"last_active_at": time.Now().UTC()}
	if currentPage != "" {
		update["current_page"] = currentPage
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before)

	var old struct {
		CurrentPage string `bson:"current_page"`
	}
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "closed_at": nil},
		bson.M{"$set": update},
		opts,
	).Decode(&old)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return UpdateResult{Updated: false}, nil
	}
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Updated: true, PreviousPage: old.CurrentPage}, nil
}

// Close ends a session with the given reason and drops its auth tokens.
func (s *Store) Close(ctx context.Context, id, reason string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "closed_at": nil},
		bson.M{
			"$set":   bson.M{"closed_at": time.Now().UTC(), "end_reason": reason},
			"$unset": bson.M{"auth": ""},
		},
	)
	return err
}

// CloseInactive closes open sessions idle for longer than threshold and
// returns their ids so callers can release in-memory state.
func (s *Store) CloseInactive(ctx context.Context, threshold time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	filter := bson.M{
		"closed_at":      nil,
		"last_active_at": bson.M{"$lt": cutoff},
	}

	cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	// Re-check idleness so a session touched in between stays open.
	filter["_id"] = bson.M{"$in": ids}
	_, err = s.c.UpdateMany(ctx, filter, bson.M{
		"$set":   bson.M{"closed_at": time.Now().UTC(), "end_reason": EndInactive},
		"$unset": bson.M{"auth": ""},
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteClosedBefore purges sessions closed before cutoff.
func (s *Store) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"closed_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountActive counts open sessions seen within threshold.
func (s *Store) CountActive(ctx context.Context, threshold time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	return s.c.CountDocuments(ctx, bson.M{
		"closed_at":      nil,
		"last_active_at": bson.M{"$gte": cutoff},
	})
}

// CountSignedIn counts open sessions that hold an auth session.
func (s *Store) CountSignedIn(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"closed_at": nil,
		"auth":      bson.M{"$exists": true},
	})
}

// Storage adapts one browser session to backend.SessionStorage.
func (s *Store) Storage(id string) backend.SessionStorage {
	return &storage{store: s, id: id}
}

type storage struct {
	store *Store
	id    string
}

func (st *storage) Load(ctx context.Context) (*backend.Session, error) {
	sess, err := st.store.GetOpen(ctx, st.id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.Auth == nil {
		return nil, nil
	}
	return sess.Auth.Session(), nil
}

func (st *storage) Save(ctx context.Context, s *backend.Session) error {
	return st.store.SetAuth(ctx, st.id, s)
}

func (st *storage) Clear(ctx context.Context) error {
	err := st.store.ClearAuth(ctx, st.id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
