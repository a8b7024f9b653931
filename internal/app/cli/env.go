package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/backend/mongobackend"
	"github.com/dalemusser/souqhub/internal/app/blob"
	"github.com/dalemusser/souqhub/internal/app/system/notify"
	"github.com/dalemusser/souqhub/internal/app/system/session"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Service is what the commands need from the data service.
type Service interface {
	NewClient(storage backend.SessionStorage) backend.Client
	EnsureAdmin(ctx context.Context, email, password, username string) (mongobackend.AdminResult, error)
	ConfirmEmail(ctx context.Context, email string) (*backend.User, error)
	// Blobs is nil when storage is disabled.
	Blobs() blob.Store
}

// mongoService adapts *mongobackend.Service.
type mongoService struct {
	svc   *mongobackend.Service
	blobs blob.Store
}

func (m mongoService) NewClient(st backend.SessionStorage) backend.Client { return m.svc.NewClient(st) }

func (m mongoService) EnsureAdmin(ctx context.Context, email, password, username string) (mongobackend.AdminResult, error) {
	return m.svc.EnsureAdmin(ctx, email, password, username)
}

func (m mongoService) ConfirmEmail(ctx context.Context, email string) (*backend.User, error) {
	return m.svc.ConfirmEmail(ctx, email)
}

func (m mongoService) Blobs() blob.Store { return m.blobs }

// env is the per-process state shared by the commands: one service
// connection and one long-lived session manager.
type env struct {
	profile Profile
	log     *zap.Logger
	out     io.Writer
	in      *bufio.Reader
	stdin   io.Reader // unbuffered, for raw-mode search

	// connect opens the service; tests replace it.
	connect func(ctx context.Context) (Service, func(context.Context) error, error)

	svc     Service
	closeFn func(context.Context) error
	mgr     *session.Manager
}

func newEnv(p Profile, logger *zap.Logger, in io.Reader, out io.Writer) *env {
	e := &env{profile: p, log: logger, out: out, in: bufio.NewReader(in), stdin: in}
	e.connect = e.connectMongo
	return e
}

func (e *env) connectMongo(ctx context.Context) (Service, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(e.profile.MongoURI).SetAppName("souqctl"))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	blobs, err := e.openBlobs(ctx)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	svc, err := mongobackend.New(client.Database(e.profile.MongoDatabase), blobs, mongobackend.Config{
		JWTSecret:                e.profile.JWTSecret,
		RequireEmailConfirmation: e.profile.RequireEmailConfirmation,
	}, e.log)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return mongoService{svc: svc, blobs: blobs}, client.Disconnect, nil
}

func (e *env) openBlobs(ctx context.Context) (blob.Store, error) {
	s := e.profile.Storage
	switch s.Type {
	case "local":
		return blob.NewLocal(s.LocalPath, s.LocalURL)
	case "s3":
		return blob.NewS3(ctx, blob.S3Config{
			Bucket:    s.S3Bucket,
			Region:    s.S3Region,
			Endpoint:  s.S3Endpoint,
			AccessKey: s.S3AccessKey,
			SecretKey: s.S3SecretKey,
			PublicURL: s.PublicURL,
		})
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", s.Type)
	}
}

// service connects on first use.
func (e *env) service(ctx context.Context) (Service, error) {
	if e.svc != nil {
		return e.svc, nil
	}
	svc, closeFn, err := e.connect(ctx)
	if err != nil {
		return nil, err
	}
	e.svc, e.closeFn = svc, closeFn
	return svc, nil
}

// manager returns the process's session manager, loading the saved
// session on first use. Notifications are printed to out.
func (e *env) manager(ctx context.Context) (*session.Manager, error) {
	if e.mgr != nil {
		return e.mgr, nil
	}
	svc, err := e.service(ctx)
	if err != nil {
		return nil, err
	}
	path, err := e.profile.sessionPath()
	if err != nil {
		return nil, err
	}
	m := session.New(svc.NewClient(&FileStorage{Path: path}), notify.NewWriter(e.out), e.log,
		session.WithRedirectTarget(e.profile.BaseURL))
	if err := m.Init(ctx); err != nil {
		m.Close()
		return nil, err
	}
	if err := m.WaitLoaded(ctx); err != nil {
		m.Close()
		return nil, err
	}
	e.mgr = m
	return m, nil
}

// close releases the manager and the connection.
func (e *env) close(ctx context.Context) {
	if e.mgr != nil {
		e.mgr.Close()
		e.mgr = nil
	}
	if e.closeFn != nil {
		if err := e.closeFn(ctx); err != nil {
			e.log.Warn("disconnect failed", zap.Error(err))
		}
		e.closeFn = nil
	}
	e.svc = nil
}
