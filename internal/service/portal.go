// Package service sits between the portal's HTTP handlers and the backend.
//
//	handler (HTTP) → service (sessions, views, flows) → api → client → backend
//
// Handlers never build clients or touch the session store directly: they
// ask Portal for the API of the current browser session, for that session's
// view models, or for a loaded referral tree.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/xeenux-portal/internal/api"
	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/client"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/session"
	"github.com/sakif/xeenux-portal/internal/tree"
)

// Portal hands out per-session backend access.
type Portal struct {
	base            *client.Client
	sessions        *session.Manager
	treeConcurrency int
	logger          *slog.Logger

	mu    sync.Mutex
	views map[string]*Views
}

// NewPortal wires a Portal. base must not carry a session; one is attached
// per call.
func NewPortal(base *client.Client, sessions *session.Manager, treeConcurrency int, logger *slog.Logger) *Portal {
	p := &Portal{
		base:            base,
		sessions:        sessions,
		treeConcurrency: treeConcurrency,
		logger:          logger,
		views:           make(map[string]*Views),
	}
	sessions.OnExpire(p.dropViews)
	return p
}

// Public returns an API with no session, for login, register and the
// password reset flow.
func (p *Portal) Public() *api.API {
	return api.New(p.base)
}

// API returns the backend API authenticated as session id.
func (p *Portal) API(id string) *api.API {
	return api.New(p.base.WithSession(p.sessions.Handle(id)))
}

// Session returns the stored session. A session that no longer exists is
// reported as apperror.ErrSessionExpired.
func (p *Portal) Session(ctx context.Context, id string) (*model.Session, error) {
	return p.sessions.Handle(id).Snapshot(ctx)
}

// Views returns the view models of session id, creating them on first use.
func (p *Portal) Views(id string) *Views {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.views[id]
	if !ok {
		v = newViews(p.API(id), p.logger.With(slog.String("session", id)))
		p.views[id] = v
	}
	return v
}

// End clears session id and drops its view models. It is used for logout
// and after the backend rejected the session for good.
func (p *Portal) End(ctx context.Context, id string) error {
	p.dropViews([]string{id})
	return p.sessions.Forget(ctx, id)
}

func (p *Portal) dropViews(ids []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		if v, ok := p.views[id]; ok {
			v.close()
			delete(p.views, id)
		}
	}
}

// Tree loads the referral tree for session id. root 0 means the viewer's own
// tree. Per-node failures stay on the nodes; only a session that expired
// while loading is returned as an error.
func (p *Portal) Tree(ctx context.Context, id string, root int64) (tree.View, error) {
	s, err := p.Session(ctx, id)
	if err != nil {
		return tree.View{}, err
	}
	viewer := s.User.UserID
	if root == model.EmptyUserID {
		root = viewer
	}

	loader := tree.NewLoader(p.API(id).Binary, p.treeConcurrency, p.logger)
	view := tree.View{Root: loader.Load(ctx, root), ViewerID: viewer}

	var expired error
	view.Root.Walk(func(n *tree.Node) {
		if expired == nil && errors.Is(n.Err, apperror.ErrSessionExpired) {
			expired = n.Err
		}
	})
	if expired != nil {
		return tree.View{}, expired
	}
	return p.Views(id).keepTree(view), nil
}

// ToggleNode expands or collapses userID in the tree last loaded for session
// id and returns it without refetching. When that tree is not rooted at root
// (or none was loaded) it loads one first.
func (p *Portal) ToggleNode(ctx context.Context, id string, root, userID int64) (tree.View, error) {
	if root == model.EmptyUserID {
		s, err := p.Session(ctx, id)
		if err != nil {
			return tree.View{}, err
		}
		root = s.User.UserID
	}

	if view, ok := p.Views(id).toggleTree(root, userID); ok {
		return view, nil
	}
	if _, err := p.Tree(ctx, id, root); err != nil {
		return tree.View{}, err
	}
	view, _ := p.Views(id).toggleTree(root, userID)
	return view, nil
}
