package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/xeenux-portal/internal/apperror"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

type recordingNotifier struct {
	mu        sync.Mutex
	errors    []string
	successes []string
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// =========================================================================
// QUERY
// =========================================================================

func TestQuery_LoadingOnlyWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	q := New(func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 7, nil
	}, quiet())

	assert.False(t, q.State().Loading, "before issue")

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Refresh(context.Background())
	}()

	<-started
	assert.True(t, q.State().Loading, "while in flight")

	close(release)
	<-done

	s := q.State()
	assert.False(t, s.Loading, "after settle")
	assert.True(t, s.HasData)
	assert.Equal(t, 7, s.Data)
	assert.NoError(t, s.Err)
}

func TestQuery_StaleWhileError(t *testing.T) {
	fail := false
	n := &recordingNotifier{}
	q := New(func(ctx context.Context) (string, error) {
		if fail {
			return "", apperror.FromStatus(500, "Database unavailable")
		}
		return "dashboard", nil
	}, WithNotifier(n), quiet())

	_, err := q.Refresh(context.Background())
	require.NoError(t, err)

	fail = true
	_, err = q.Refresh(context.Background())
	require.Error(t, err)

	s := q.State()
	assert.Equal(t, "dashboard", s.Data, "previous data kept")
	assert.True(t, s.HasData)
	assert.ErrorIs(t, s.Err, apperror.ErrBackend)
	assert.Equal(t, []string{"Database unavailable"}, n.errors)

	fail = false
	_, err = q.Refresh(context.Background())
	require.NoError(t, err)
	assert.NoError(t, q.State().Err, "success clears the error")
}

func TestQuery_UntypedErrorIsGenericMessage(t *testing.T) {
	n := &recordingNotifier{}
	q := New(func(ctx context.Context) (int, error) {
		return 0, errors.New("dial tcp: refused")
	}, WithNotifier(n), quiet())

	q.Refresh(context.Background())
	assert.Equal(t, []string{"Something went wrong"}, n.errors)
}

func TestQuery_Ensure(t *testing.T) {
	calls := 0
	q := New(func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}, quiet())

	q.Ensure(context.Background())
	s := q.Ensure(context.Background())

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, s.Data)
}

func TestQuery_SupersededCallIsCancelled(t *testing.T) {
	firstCtx := make(chan context.Context, 1)
	var once sync.Once
	q := New(func(ctx context.Context) (int, error) {
		first := false
		once.Do(func() { first = true })
		if first {
			firstCtx <- ctx
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return 2, nil
	}, quiet())

	go q.Refresh(context.Background())
	ctx := <-firstCtx

	_, err := q.Refresh(context.Background())
	require.NoError(t, err)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("superseded call was not cancelled")
	}

	assert.Eventually(t, func() bool {
		s := q.State()
		return s.Data == 2 && !s.Loading && s.Err == nil
	}, time.Second, 5*time.Millisecond)
}

// =========================================================================
// PAGED
// =========================================================================

func TestPaged_LastIssuedPageWins(t *testing.T) {
	page2Started := make(chan struct{})
	releasePage2 := make(chan struct{})

	p := NewPaged(func(ctx context.Context, page int, filter string) (string, error) {
		if page == 2 {
			close(page2Started)
			<-releasePage2 // the slow response
		}
		return fmt.Sprintf("%s page %d", filter, page), nil
	}, "roi", quiet())

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.SetPage(context.Background(), 2)
	}()
	<-page2Started

	// page 3 is requested later but answers first
	_, err := p.SetPage(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "roi page 3", p.State().Data)

	close(releasePage2)
	<-done

	s := p.State()
	assert.Equal(t, "roi page 3", s.Data, "late page 2 response is discarded")
	assert.False(t, s.Loading)
	page, _ := p.Current()
	assert.Equal(t, 3, page)
}

func TestPaged_LoadingStaysTrueUntilLatestSettles(t *testing.T) {
	started := make(chan int, 2)
	release := map[int]chan struct{}{2: make(chan struct{}), 3: make(chan struct{})}

	p := NewPaged(func(ctx context.Context, page int, _ string) (int, error) {
		started <- page
		<-release[page]
		return page, nil
	}, "", quiet())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() { defer wg.Done(); p.SetPage(context.Background(), 2) }()
	require.Equal(t, 2, <-started)

	wg.Add(1)
	go func() { defer wg.Done(); p.SetPage(context.Background(), 3) }()
	require.Equal(t, 3, <-started)

	// the earlier call settles; the latest is still out
	close(release[2])
	time.Sleep(10 * time.Millisecond)
	assert.True(t, p.State().Loading)
	assert.False(t, p.State().HasData)

	close(release[3])
	wg.Wait()
	assert.False(t, p.State().Loading)
	assert.Equal(t, 3, p.State().Data)
}

func TestPaged_SetFilterResetsPage(t *testing.T) {
	var got []string
	p := NewPaged(func(ctx context.Context, page int, filter string) (int, error) {
		got = append(got, fmt.Sprintf("%s/%d", filter, page))
		return page, nil
	}, "all", quiet())

	p.SetPage(context.Background(), 4)
	p.SetFilter(context.Background(), "binary")
	p.SetPage(context.Background(), 0)
	p.Refresh(context.Background())

	assert.Equal(t, []string{"all/4", "binary/1", "binary/1", "binary/1"}, got)
}

func TestPaged_SelectFetchesOnce(t *testing.T) {
	var got []string
	p := NewPaged(func(ctx context.Context, page int, filter string) (int, error) {
		got = append(got, fmt.Sprintf("%s/%d", filter, page))
		return page, nil
	}, "all", quiet())

	p.Select(context.Background(), 3, "roi")
	p.Select(context.Background(), -2, "level")

	assert.Equal(t, []string{"roi/3", "level/1"}, got)
	page, filter := p.Current()
	assert.Equal(t, 1, page)
	assert.Equal(t, "level", filter)
}

// =========================================================================
// MUTATION
// =========================================================================

func TestMutation(t *testing.T) {
	n := &recordingNotifier{}
	m := NewMutation(func(ctx context.Context, amount int) (string, error) {
		if amount > 100 {
			return "", apperror.FromStatus(400, "Insufficient balance")
		}
		return "ok", nil
	}, WithNotifier(n), WithSuccessMessage("Withdrawal requested"), quiet())

	assert.False(t, m.State().Loading)

	out, err := m.Submit(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = m.Submit(context.Background(), 1000)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	s := m.State()
	assert.False(t, s.Loading)
	assert.Equal(t, "ok", s.Data)
	assert.Error(t, s.Err)
	assert.Equal(t, []string{"Withdrawal requested"}, n.successes)
	assert.Equal(t, []string{"Insufficient balance"}, n.errors)
}
