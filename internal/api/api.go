// Package api has one method per backend endpoint, grouped by family.
//
// Every method is a single round trip through a Doer and returns the
// envelope's data block decoded into a model type. Authentication is the
// Doer's concern: the same methods serve the portal (per-browser session)
// and the CLI (session file).
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/client"
	"github.com/sakif/xeenux-portal/internal/model"
)

// Doer sends a request to the backend. *client.Client implements it.
type Doer interface {
	Do(ctx context.Context, req client.Request, out any) error
	Envelope(ctx context.Context, req client.Request) (*model.RawEnvelope, error)
}

// API groups every endpoint family behind one value.
type API struct {
	Auth         *Auth
	Users        *Users
	Packages     *Packages
	Income       *Income
	Binary       *Binary
	Autopool     *Autopool
	Transactions *Transactions
	Admin        *Admin
}

func New(d Doer) *API {
	return &API{
		Auth:         &Auth{d: d},
		Users:        &Users{d: d},
		Packages:     &Packages{d: d},
		Income:       &Income{d: d},
		Binary:       &Binary{d: d},
		Autopool:     &Autopool{d: d},
		Transactions: &Transactions{d: d},
		Admin:        &Admin{d: d},
	}
}

// Page selects one page of a list endpoint. Zero fields are left to the
// backend's defaults.
type Page struct {
	Page  int
	Limit int
}

func (p Page) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	return v
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func get[T any](ctx context.Context, d Doer, path string, q url.Values) (T, error) {
	var out T
	err := d.Do(ctx, client.Request{Method: http.MethodGet, Path: path, Query: q}, &out)
	return out, err
}

func send[T any](ctx context.Context, d Doer, method, path string, body any) (T, error) {
	var out T
	err := d.Do(ctx, client.Request{Method: method, Path: path, Body: body}, &out)
	return out, err
}

func decode(raw json.RawMessage, out any, op string) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.Transport(op+": decoding data", err)
	}
	return nil
}
