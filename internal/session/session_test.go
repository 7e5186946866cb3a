package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReturnsSameSessionForSameID(t *testing.T) {
	r := NewRegistry(10, time.Hour, 0)

	first, created := r.GetOrCreate("")
	require.True(t, created)

	again, created := r.GetOrCreate(first.ID)
	assert.False(t, created)
	assert.Same(t, first, again)

	other, created := r.GetOrCreate("")
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryIsolatesProfiles(t *testing.T) {
	r := NewRegistry(10, time.Hour, 0)
	a, _ := r.GetOrCreate("")
	b, _ := r.GetOrCreate("")

	p := a.Profile.Get()
	p.Goals = "Run a marathon"
	a.Profile.Set(p)

	assert.Equal(t, "Run a marathon", a.Profile.Get().Goals)
	assert.NotEqual(t, "Run a marathon", b.Profile.Get().Goals)
}

func TestRegistryUnknownIDGetsFreshSession(t *testing.T) {
	r := NewRegistry(10, time.Hour, 0)

	sess, created := r.GetOrCreate("no-such-id")
	assert.True(t, created)
	assert.NotEqual(t, "no-such-id", sess.ID)

	_, ok := r.Get("no-such-id")
	assert.False(t, ok)
}

func TestRegistryExpiresIdleSessions(t *testing.T) {
	r := NewRegistry(10, 50*time.Millisecond, 0)
	sess, _ := r.GetOrCreate("")

	require.Eventually(t, func() bool {
		_, ok := r.Get(sess.ID)
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRegistry(2, time.Hour, 0)
	a, _ := r.GetOrCreate("")
	b, _ := r.GetOrCreate("")
	_, _ = r.Get(a.ID)
	_, _ = r.GetOrCreate("")

	_, ok := r.Get(b.ID)
	assert.False(t, ok)
	_, ok = r.Get(a.ID)
	assert.True(t, ok)
}

func TestSessionBusyFlag(t *testing.T) {
	s := New("s1", 0)

	require.True(t, s.MarkBusy())
	assert.False(t, s.MarkBusy())
	s.Done()
	assert.True(t, s.MarkBusy())
}

func TestSessionRateLimit(t *testing.T) {
	s := New("s1", 1)

	for i := 0; i < rateBurst; i++ {
		assert.True(t, s.Allow(), "call %d within burst", i)
	}
	assert.False(t, s.Allow())
}

func TestSessionMailLimitIgnoresModelRate(t *testing.T) {
	s := New("s1", 0)
	for i := 0; i < mailBurst; i++ {
		assert.True(t, s.AllowMail(), "email %d within burst", i)
	}
	assert.False(t, s.AllowMail())
	assert.True(t, s.Allow(), "model budget is separate")
}

func TestSessionUnlimitedWhenRateIsZero(t *testing.T) {
	s := New("s1", 0)
	for i := 0; i < 50; i++ {
		require.True(t, s.Allow())
	}
}

func TestSessionLatestMealPlan(t *testing.T) {
	s := New("s1", 0)

	_, ok := s.LatestMealPlan()
	assert.False(t, ok)

	s.SetLatestMealPlan("Day 1: oats")
	plan, ok := s.LatestMealPlan()
	assert.True(t, ok)
	assert.Equal(t, "Day 1: oats", plan)
}

func TestMiddlewareIssuesAndReusesCookie(t *testing.T) {
	m := NewManager([]byte("0123456789abcdef0123456789abcdef"), false, NewRegistry(10, time.Hour, 0))
	e := echo.New()

	var seen []string
	h := m.Middleware(func(c echo.Context) error {
		sess, err := FromContext(c)
		require.NoError(t, err)
		seen = append(seen, sess.ID)
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Empty(t, rec.Result().Cookies(), "existing session keeps its cookie")

	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
}

func TestMiddlewareReplacesTamperedCookie(t *testing.T) {
	m := NewManager([]byte("0123456789abcdef0123456789abcdef"), false, NewRegistry(10, time.Hour, 0))
	e := echo.New()
	h := m.Middleware(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	rec := httptest.NewRecorder()

	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, 1, m.Registry().Len())
}

func TestFromContextMissing(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := FromContext(c)
	assert.Error(t, err)
}

func TestDeriveKeysIsDeterministic(t *testing.T) {
	h1, b1 := deriveKeys([]byte("secret"))
	h2, b2 := deriveKeys([]byte("secret"))
	assert.Equal(t, h1, h2)
	assert.Equal(t, b1, b2)
	assert.Len(t, b1, 32)
	assert.NotEqual(t, h1, b1)

	h3, _ := deriveKeys([]byte("other"))
	assert.NotEqual(t, h1, h3)
}
