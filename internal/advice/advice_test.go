package advice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Karagwa/ChapFarm/internal/models"
)

type memCache struct {
	stored  []*models.Advice
	listErr error
}

func (m *memCache) ListAdvice(context.Context) ([]*models.Advice, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.stored, nil
}

func (m *memCache) CreateAdvice(_ context.Context, a *models.Advice) error {
	m.stored = append(m.stored, a)
	return nil
}

func newTestService(t *testing.T, cache Cache, baseURL string) *Service {
	t.Helper()
	svc, err := NewService(&Options{
		Cache:   cache,
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "llama-3.1-8b-instant",
		Logger:  zap.NewNop().Sugar(),
	})
	require.NoError(t, err)
	return svc
}

// completionServer mimics the chat completions endpoint and counts calls.
func completionServer(t *testing.T, content string, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` + content + `"}}]}`))
	}))
}

func TestGetServesCachedAnswer(t *testing.T) {
	cache := &memCache{stored: []*models.Advice{
		{QueryText: "my maize has pests", ResponseText: "Use neem extract."},
	}}

	var calls int
	srv := completionServer(t, "should not be called", &calls)
	defer srv.Close()

	svc := newTestService(t, cache, srv.URL+"/v1")

	// Close enough to the stored query to match.
	got, err := svc.Get(context.Background(), "My maize has pests!")
	require.NoError(t, err)
	assert.Equal(t, "Use neem extract.", got)
	assert.Zero(t, calls, "a cache hit must not reach the completion backend")
}

func TestGetGeneratesAndPersistsNovelAnswer(t *testing.T) {
	cache := &memCache{}

	var calls int
	srv := completionServer(t, "Rotate your crops.", &calls)
	defer srv.Close()

	svc := newTestService(t, cache, srv.URL+"/v1")

	got, err := svc.Get(context.Background(), "  How do I improve soil? ")
	require.NoError(t, err)
	assert.Equal(t, "Rotate your crops.", got)
	assert.Equal(t, 1, calls)

	require.Len(t, cache.stored, 1)
	assert.Equal(t, "how do i improve soil?", cache.stored[0].QueryText)
	assert.Equal(t, "Rotate your crops.", cache.stored[0].ResponseText)
}

func TestGetUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newTestService(t, &memCache{}, srv.URL+"/v1")

	_, err := svc.Get(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestGetToleratesCacheReadFailure(t *testing.T) {
	cache := &memCache{listErr: errors.New("db down")}

	var calls int
	srv := completionServer(t, "Mulch heavily.", &calls)
	defer srv.Close()

	svc := newTestService(t, cache, srv.URL+"/v1")

	got, err := svc.Get(context.Background(), "dry season prep")
	require.NoError(t, err)
	assert.Equal(t, "Mulch heavily.", got)
	assert.Equal(t, 1, calls)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, similarity("maize pests", "maize pests"))
	assert.Equal(t, 100, similarity("", ""))
	assert.Greater(t, similarity("maize pests", "maize pest"), 85)
	assert.Less(t, similarity("maize pests", "transport to market"), 50)
}
