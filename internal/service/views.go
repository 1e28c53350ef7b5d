package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/xeenux-portal/internal/api"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/query"
	"github.com/sakif/xeenux-portal/internal/tree"
)

// PageSize is the list size the portal pages use.
const PageSize = 10

// FlashKind tells the template how to style a message.
type FlashKind string

const (
	FlashError   FlashKind = "error"
	FlashSuccess FlashKind = "success"
)

// Flash is one user-visible message.
type Flash struct {
	Kind    FlashKind
	Message string
}

// Flashes collects messages until the next page render drains them. It is
// the query.Notifier of a session's views.
type Flashes struct {
	mu   sync.Mutex
	msgs []Flash
}

func (f *Flashes) Error(msg string)   { f.add(FlashError, msg) }
func (f *Flashes) Success(msg string) { f.add(FlashSuccess, msg) }

func (f *Flashes) add(kind FlashKind, msg string) {
	if msg == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// a failing page refreshed twice should not stack the same banner
	for _, m := range f.msgs {
		if m.Kind == kind && m.Message == msg {
			return
		}
	}
	f.msgs = append(f.msgs, Flash{Kind: kind, Message: msg})
}

// Drain returns the pending messages and forgets them.
func (f *Flashes) Drain() []Flash {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.msgs
	f.msgs = nil
	return out
}

// Views are the view models of one browser session. They outlive a single
// request, so a page whose backend call fails still shows the last data it
// loaded, with the error in a banner.
type Views struct {
	Flash *Flashes

	Dashboard    *query.Query[model.Dashboard]
	Incomes      *query.Paged[model.IncomePage]
	Transactions *query.Paged[model.TransactionPage]

	Withdraw *query.Mutation[model.WithdrawalRequest, model.WithdrawalResult]
	Purchase *query.Mutation[model.PurchaseRequest, model.PurchaseResult]
	Swap     *query.Mutation[model.SwapRequest, model.SwapResult]

	// last tree loaded, so expanding a node re-renders without refetching
	treeMu sync.Mutex
	tree   *tree.View
}

func newViews(a *api.API, logger *slog.Logger) *Views {
	flash := &Flashes{}
	common := func(name string) []query.Option {
		return []query.Option{query.WithName(name), query.WithNotifier(flash), query.WithLogger(logger)}
	}

	return &Views{
		Flash: flash,

		Dashboard: query.New(a.Users.Dashboard, common("dashboard")...),

		Incomes: query.NewPaged(func(ctx context.Context, page int, kind string) (model.IncomePage, error) {
			return a.Income.List(ctx, model.IncomeType(kind), api.Page{Page: page, Limit: PageSize})
		}, string(model.IncomeAll), common("incomes")...),

		Transactions: query.NewPaged(func(ctx context.Context, page int, kind string) (model.TransactionPage, error) {
			return a.Transactions.List(ctx, model.TransactionFilter{Type: kind, Page: page, Limit: PageSize})
		}, "", common("transactions")...),

		Withdraw: query.NewMutation(a.Transactions.Withdraw,
			append(common("withdraw"), query.WithSuccessMessage("Withdrawal requested"))...),
		Purchase: query.NewMutation(a.Packages.Purchase,
			append(common("purchase"), query.WithSuccessMessage("Package purchased"))...),
		Swap: query.NewMutation(a.Transactions.Swap,
			append(common("swap"), query.WithSuccessMessage("Swap completed"))...),
	}
}

func (v *Views) close() {
	v.Dashboard.Close()
	v.Incomes.Close()
	v.Transactions.Close()
}

func (v *Views) keepTree(view tree.View) tree.View {
	v.treeMu.Lock()
	defer v.treeMu.Unlock()
	v.tree = &view
	return tree.View{Root: view.Root.Clone(), ViewerID: view.ViewerID}
}

// toggleTree flips the details of userID in the kept tree, if that tree is
// rooted at root. The caller gets a copy to render.
func (v *Views) toggleTree(root, userID int64) (tree.View, bool) {
	v.treeMu.Lock()
	defer v.treeMu.Unlock()

	if v.tree == nil || v.tree.Root.UserID != root {
		return tree.View{}, false
	}
	if n := v.tree.Root.Find(userID); n != nil {
		n.Toggle()
	}
	return tree.View{Root: v.tree.Root.Clone(), ViewerID: v.tree.ViewerID}, true
}
