package remote

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrbnet/wrbhost/internal/pod"
)

func newTestNode(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Retries: 1})
}

func TestListSlots(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/pods/home-pod/slots", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"slot":0,"version":3,"signer":"02aa"},{"slot":5,"version":1}]`))
	})

	mds, err := c.ListSlots(context.Background(), "home-pod")
	require.NoError(t, err)
	require.Len(t, mds, 2)
	assert.Equal(t, pod.SlotMetadata{Slot: 0, Version: 3, Signer: []byte{0x02, 0xaa}}, mds[0])
	assert.Equal(t, uint32(5), mds[1].Slot)
	assert.Empty(t, mds[1].Signer)
}

func TestGetSlot(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/slots/1"):
			_, _ = w.Write([]byte("chunk bytes"))
		default:
			http.NotFound(w, r)
		}
	})

	data, err := c.GetSlot(context.Background(), "home-pod", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("chunk bytes"), data)

	_, err = c.GetSlot(context.Background(), "home-pod", 2)
	assert.ErrorIs(t, err, pod.ErrNoSuchSlot)
}

func TestPutSlotAccepted(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req putRequestJSON
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, uint64(4), req.Version)
		raw, err := base64.StdEncoding.DecodeString(req.Data)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), raw)
		_, _ = w.Write([]byte(`{"accepted":true}`))
	})

	res, err := c.PutSlot(context.Background(), "home-pod", pod.Chunk{
		Slot: 2, Version: 4, Data: []byte("payload"),
	})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Nil(t, res.Latest)
}

func TestPutSlotVersionConflict(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"accepted":false,"reason":"stale version","latest":{"slot":2,"version":9,"signer":"02bb"}}`))
	})

	res, err := c.PutSlot(context.Background(), "home-pod", pod.Chunk{Slot: 2, Version: 4})
	require.NoError(t, err, "a version conflict is an outcome, not a transport error")
	assert.False(t, res.Accepted)
	assert.Equal(t, "stale version", res.Reason)
	require.NotNil(t, res.Latest)
	assert.Equal(t, uint64(9), res.Latest.Version)
	assert.Equal(t, []byte{0x02, 0xbb}, res.Latest.Signer)
}

func TestOwner(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pods/home-pod/owner", r.URL.Path)
		_, _ = w.Write([]byte(`{"owner":"alice"}`))
	})

	owner, err := c.Owner(context.Background(), "home-pod")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
}

func TestReadonlyCall(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/contracts/SP000.wrb-ll/readonly/get-value", r.URL.Path)
		var req readonlyRequestJSON
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"u1", "0x02"}, req.Args)
		_, _ = w.Write([]byte(`{"result":"(ok u42)"}`))
	})

	out, err := c.Call(context.Background(), "SP000.wrb-ll", "get-value", []string{"u1", "0x02"})
	require.NoError(t, err)
	assert.Equal(t, "(ok u42)", out)
}

func TestReadonlyCallNodeFailure(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"","error":"no such function"}`))
	})

	_, err := c.Call(context.Background(), "SP000.wrb-ll", "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such function")
}

func TestServerErrorsSurface(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pod misconfigured", http.StatusBadRequest)
	})

	_, err := c.ListSlots(context.Background(), "home-pod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestBreakerTripsOnRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusBadRequest)
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := c.Owner(ctx, "home-pod")
		require.Error(t, err)
	}
	before := hits.Load()

	_, err := c.Owner(ctx, "home-pod")
	require.Error(t, err)
	assert.Equal(t, before, hits.Load(), "open breaker must not reach the node")
}
