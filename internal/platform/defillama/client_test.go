package defillama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/econagent/internal/domain"
)

const poolsBody = `{"status":"success","data":[
 {"project":"aave-v3","symbol":"USDC","chain":"Ethereum","apy":4.1,"tvlUsd":900000000},
 {"project":"aave-v3","symbol":"USDC","chain":"Arbitrum","apy":5.3,"tvlUsd":120000000},
 {"project":"lido","symbol":"STETH","chain":"Ethereum","apy":3.0,"tvlUsd":25000000000}
]}`

func TestGetPool_PicksLargestAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/pools", r.URL.Path)
		_, _ = w.Write([]byte(poolsBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Minute)
	apy, tvl, err := c.GetPool(context.Background(), "aave-v3", "USDC")
	require.NoError(t, err)
	assert.Equal(t, 4.1, apy)
	assert.Equal(t, 9e8, tvl)

	apy, _, err = c.GetPool(context.Background(), "lido", "ETH")
	require.NoError(t, err)
	assert.Equal(t, 3.0, apy)

	_, _, err = c.GetPool(context.Background(), "gmx", "ETH")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}
