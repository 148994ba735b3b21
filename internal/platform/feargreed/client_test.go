package feargreed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSentiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fng/", r.URL.Path)
		_, _ = w.Write([]byte(`{"name":"Fear and Greed Index","data":[{"value":"75","value_classification":"Greed"}]}`))
	}))
	defer srv.Close()

	s, err := NewClient(srv.URL).GetSentiment(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s, 1e-12)
}

func TestIndexToSentiment(t *testing.T) {
	assert.Equal(t, -1.0, IndexToSentiment(0))
	assert.Equal(t, 0.0, IndexToSentiment(50))
	assert.Equal(t, 1.0, IndexToSentiment(100))
	assert.Equal(t, 1.0, IndexToSentiment(140))
}
