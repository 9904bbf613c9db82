// Package metadata implements the metadata service: DDL text for
// navigator nodes, read from the live catalog of a session's connection.
package metadata

import (
	"context"
	"errors"

	"dbmeta/internal/db"
	"dbmeta/internal/ddl"
	"dbmeta/internal/logger"
	"dbmeta/internal/navigator"
	"dbmeta/internal/session"
	"dbmeta/internal/weberr"
)

// Service is the remotely invokable metadata contract.
type Service interface {
	// GetNodeDDL returns the DDL of node as seen through sess. Failures
	// are *weberr.Error values.
	GetNodeDDL(ctx context.Context, sess *session.Session, node *navigator.Node, options map[string]any) (string, error)
}

// Connector hands out catalog handles; *db.Pool implements it.
type Connector interface {
	Acquire(ctx context.Context, driver, dsn string, timeoutSec int) (*db.Handle, error)
	Release(h *db.Handle)
}

// DDLService implements Service on top of a Connector.
type DDLService struct {
	conns Connector
}

var _ Service = (*DDLService)(nil)

func New(conns Connector) *DDLService {
	return &DDLService{conns: conns}
}

// Handle acquires the catalog handle of sess's connection. Pair it with Release.
func (s *DDLService) Handle(ctx context.Context, sess *session.Session) (*db.Handle, error) {
	c := sess.Connection
	h, err := s.conns.Acquire(ctx, c.Driver, c.DSN, c.Timeout)
	if err != nil {
		return nil, weberr.Wrap(weberr.ConnectionFailed, "cannot reach database", err)
	}
	return h, nil
}

// Release returns a handle obtained from Handle.
func (s *DDLService) Release(h *db.Handle) {
	s.conns.Release(h)
}

func (s *DDLService) GetNodeDDL(ctx context.Context, sess *session.Session, node *navigator.Node, options map[string]any) (string, error) {
	if sess == nil {
		return "", weberr.New(weberr.SessionInvalid, "no session")
	}
	if sess.IsExpired() {
		return "", weberr.New(weberr.SessionInvalid, "session expired")
	}
	if node == nil {
		return "", weberr.New(weberr.NodeNotFound, "no node given")
	}
	if node.Connection != sess.ConnectionKey() {
		return "", weberr.Newf(weberr.NodeNotFound, "node %q does not belong to this session", node.ID)
	}

	opts, err := ddl.ParseOptions(options)
	if err != nil {
		return "", weberr.Wrap(weberr.BadRequest, "invalid options", err)
	}

	h, err := s.Handle(ctx, sess)
	if err != nil {
		return "", err
	}
	defer s.Release(h)

	out, err := ddl.NewRenderer(h, opts).Render(ctx, node)
	if errors.Is(err, db.ErrNotFound) {
		return "", weberr.Wrap(weberr.NodeNotFound, "node "+node.ID+" no longer exists", err)
	}
	if err != nil {
		logger.Error("ddl for %s node %q: %v", node.Kind, node.ID, err)
		return "", weberr.Wrap(weberr.DDLGenerationFailed, "cannot generate DDL for "+node.ID, err)
	}
	logger.Debug("ddl for %s node %q in session %s: %d bytes", node.Kind, node.ID, sess.ID, len(out))
	return out, nil
}
