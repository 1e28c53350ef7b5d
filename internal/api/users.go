package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sakif/xeenux-portal/internal/model"
)

type Users struct{ d Doer }

func (u *Users) Me(ctx context.Context) (model.Profile, error) {
	return get[model.Profile](ctx, u.d, "/users/me", nil)
}

// UpdateMe patches the profile and returns the updated user.
func (u *Users) UpdateMe(ctx context.Context, req model.ProfileUpdate) (model.User, error) {
	out, err := send[model.AuthUser](ctx, u.d, http.MethodPatch, "/users/me", req)
	return out.User, err
}

func (u *Users) Dashboard(ctx context.Context) (model.Dashboard, error) {
	return get[model.Dashboard](ctx, u.d, "/users/dashboard", nil)
}

func (u *Users) BinaryTree(ctx context.Context) (model.UserBinaryTree, error) {
	return get[model.UserBinaryTree](ctx, u.d, "/users/binary-tree", nil)
}

// Team lists the downline at one referral level.
func (u *Users) Team(ctx context.Context, level int, p Page) (model.TeamPage, error) {
	return get[model.TeamPage](ctx, u.d, "/users/team/"+strconv.Itoa(level), p.values())
}

// Activities lists the activity feed. A nil kind lists every type.
func (u *Users) Activities(ctx context.Context, kind *model.ActivityType, p Page) (model.ActivityPage, error) {
	q := p.values()
	if kind != nil {
		q.Set("type", strconv.Itoa(int(*kind)))
	}
	return get[model.ActivityPage](ctx, u.d, "/users/activities", q)
}

func (u *Users) Packages(ctx context.Context) (model.UserPackages, error) {
	return get[model.UserPackages](ctx, u.d, "/users/packages", nil)
}
