package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sakif/xeenux-portal/internal/client"
	"github.com/sakif/xeenux-portal/internal/model"
)

type Packages struct{ d Doer }

func (p *Packages) List(ctx context.Context) (model.PackageList, error) {
	return get[model.PackageList](ctx, p.d, "/packages", nil)
}

func (p *Packages) Get(ctx context.Context, id int) (model.Package, error) {
	out, err := get[model.PackageDetails](ctx, p.d, "/packages/"+strconv.Itoa(id), nil)
	return out.Package, err
}

func (p *Packages) Purchase(ctx context.Context, req model.PurchaseRequest) (model.PurchaseResult, error) {
	return send[model.PurchaseResult](ctx, p.d, http.MethodPost, "/packages/purchase", req)
}

// Create, Update and Delete are admin-only.

func (p *Packages) Create(ctx context.Context, in model.PackageInput) (model.Package, error) {
	out, err := send[model.PackageDetails](ctx, p.d, http.MethodPost, "/packages", in)
	return out.Package, err
}

func (p *Packages) Update(ctx context.Context, id int, in model.PackageInput) (model.Package, error) {
	out, err := send[model.PackageDetails](ctx, p.d, http.MethodPatch, "/packages/"+strconv.Itoa(id), in)
	return out.Package, err
}

func (p *Packages) Delete(ctx context.Context, id int) error {
	return p.d.Do(ctx, client.Request{Method: http.MethodDelete, Path: "/packages/" + strconv.Itoa(id)}, nil)
}
