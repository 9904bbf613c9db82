package api

import (
	"context"
	"errors"
	"sort"

	"github.com/goccy/go-json"

	"dbmeta/internal/db"
	"dbmeta/internal/navigator"
	"dbmeta/internal/session"
	"dbmeta/internal/weberr"
)

// Action is one remotely invokable operation. params is the raw JSON body.
type Action func(ctx context.Context, sess *session.Session, params json.RawMessage) (any, error)

// actionTable is the complete set of invokable actions.
func (s *Server) actionTable() map[string]Action {
	return map[string]Action{
		"metadata.getNodeDDL":   s.getNodeDDL,
		"navigator.getNode":     s.getNode,
		"navigator.getChildren": s.getChildren,
	}
}

// ActionNames returns the names in the action table, sorted.
func (s *Server) ActionNames() []string {
	names := make([]string, 0, len(s.actions))
	for n := range s.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type nodeParams struct {
	NodePath string         `json:"nodePath"`
	Options  map[string]any `json:"options"`
}

func decodeParams(raw json.RawMessage) (nodeParams, error) {
	var p nodeParams
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, weberr.Wrap(weberr.BadRequest, "invalid parameters", err)
	}
	return p, nil
}

// resolveNode maps a node path to a node of h's connection. Catalog
// failures are reported with failKind.
func resolveNode(ctx context.Context, h *db.Handle, path string, failKind weberr.Kind) (*navigator.Node, error) {
	n, err := navigator.Resolve(ctx, h, path)
	if errors.Is(err, navigator.ErrNodeNotFound) {
		return nil, weberr.Wrap(weberr.NodeNotFound, "node "+path+" not found", err)
	}
	if err != nil {
		return nil, weberr.Wrap(failKind, "cannot resolve node "+path, err)
	}
	return n, nil
}

// withHandle runs fn with the catalog handle of sess's connection.
func (s *Server) withHandle(ctx context.Context, sess *session.Session, fn func(h *db.Handle) (any, error)) (any, error) {
	h, err := s.meta.Handle(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer s.meta.Release(h)
	return fn(h)
}

func (s *Server) getNodeDDL(ctx context.Context, sess *session.Session, raw json.RawMessage) (any, error) {
	p, err := decodeParams(raw)
	if err != nil {
		return nil, err
	}
	return s.withHandle(ctx, sess, func(h *db.Handle) (any, error) {
		n, err := resolveNode(ctx, h, p.NodePath, weberr.DDLGenerationFailed)
		if err != nil {
			return nil, err
		}
		return s.meta.GetNodeDDL(ctx, sess, n, p.Options)
	})
}

func (s *Server) getNode(ctx context.Context, sess *session.Session, raw json.RawMessage) (any, error) {
	p, err := decodeParams(raw)
	if err != nil {
		return nil, err
	}
	return s.withHandle(ctx, sess, func(h *db.Handle) (any, error) {
		return resolveNode(ctx, h, p.NodePath, weberr.Internal)
	})
}

func (s *Server) getChildren(ctx context.Context, sess *session.Session, raw json.RawMessage) (any, error) {
	p, err := decodeParams(raw)
	if err != nil {
		return nil, err
	}
	return s.withHandle(ctx, sess, func(h *db.Handle) (any, error) {
		n, err := resolveNode(ctx, h, p.NodePath, weberr.Internal)
		if err != nil {
			return nil, err
		}
		children, err := navigator.Children(ctx, h, n)
		if errors.Is(err, navigator.ErrNodeNotFound) {
			return nil, weberr.Wrap(weberr.NodeNotFound, "node "+p.NodePath+" not found", err)
		}
		if err != nil {
			return nil, weberr.Wrap(weberr.Internal, "cannot list children of "+p.NodePath, err)
		}
		return children, nil
	})
}
