// Package remote implements the pod storage backend against a replicated
// slot-storage node over HTTP.
package remote

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/wrbnet/wrbhost/internal/infrastructure/resilience"
	"github.com/wrbnet/wrbhost/internal/pod"
)

// Config tunes the node client. Zero values pick production defaults.
type Config struct {
	// BaseURL is the node's HTTP endpoint, e.g. http://127.0.0.1:19443.
	BaseURL string
	// Timeout bounds each request.
	Timeout time.Duration
	// Retries is the transport-level retry budget for idempotent requests.
	Retries int
	// RateLimit caps requests per second against the node; 0 means no cap.
	RateLimit float64
}

// Client is a pod.Backend speaking the node's HTTP API. Transport retries
// handle transient faults; the breaker fails fast during outages.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker

	mu sync.RWMutex
}

var _ pod.Backend = (*Client)(nil)

// NewClient builds a node client over a retrying transport.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 3
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "wrbhost/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	breaker := resilience.New("storage-node", resilience.Options{
		Probes:   3,
		Window:   time.Minute,
		Cooldown: 15 * time.Second,
		TripAfter: func(s resilience.Stats) bool {
			return s.Streak >= 5
		},
	})

	return &Client{
		resty:   rc,
		limiter: rate.NewLimiter(limit, 1),
		breaker: breaker,
	}
}

// Breaker exposes the node breaker for monitoring.
func (c *Client) Breaker() *resilience.Breaker { return c.breaker }

func (c *Client) call(ctx context.Context, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.breaker.Do(fn)
}

// ListSlots returns the node's metadata for every written slot of the pod.
func (c *Client) ListSlots(ctx context.Context, ref string) ([]pod.SlotMetadata, error) {
	var out []pod.SlotMetadata
	err := c.call(ctx, func() error {
		resp, err := c.resty.R().
			SetContext(ctx).
			Get(podPath(ref, "slots"))
		if err != nil {
			return err
		}
		if resp.StatusCode() != http.StatusOK {
			return nodeError(resp)
		}
		var listing []slotMetadataJSON
		if err := sonic.Unmarshal(resp.Body(), &listing); err != nil {
			return fmt.Errorf("decode slot listing: %w", err)
		}
		out = make([]pod.SlotMetadata, 0, len(listing))
		for _, md := range listing {
			signer, err := hex.DecodeString(md.Signer)
			if err != nil {
				return fmt.Errorf("slot %d: bad signer encoding: %w", md.Slot, err)
			}
			out = append(out, pod.SlotMetadata{Slot: md.Slot, Version: md.Version, Signer: signer})
		}
		return nil
	})
	return out, err
}

// GetSlot downloads one slot's chunk. A slot the node has never accepted a
// write for maps to pod.ErrNoSuchSlot.
func (c *Client) GetSlot(ctx context.Context, ref string, slot uint32) ([]byte, error) {
	var out []byte
	err := c.call(ctx, func() error {
		resp, err := c.resty.R().
			SetContext(ctx).
			Get(podPath(ref, fmt.Sprintf("slots/%d", slot)))
		if err != nil {
			return err
		}
		switch resp.StatusCode() {
		case http.StatusOK:
			out = resp.Body()
			return nil
		case http.StatusNotFound:
			return pod.ErrNoSuchSlot
		default:
			return nodeError(resp)
		}
	})
	return out, err
}

// PutSlot uploads one chunk at a proposed version. A version conflict is a
// normal outcome carried in the result, not an error.
func (c *Client) PutSlot(ctx context.Context, ref string, chunk pod.Chunk) (pod.PutResult, error) {
	var out pod.PutResult
	err := c.call(ctx, func() error {
		body, err := sonic.Marshal(putRequestJSON{
			Version: chunk.Version,
			Data:    base64.StdEncoding.EncodeToString(chunk.Data),
		})
		if err != nil {
			return err
		}
		resp, err := c.resty.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(podPath(ref, fmt.Sprintf("slots/%d", chunk.Slot)))
		if err != nil {
			return err
		}
		if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusConflict {
			return nodeError(resp)
		}
		var pr putResponseJSON
		if err := sonic.Unmarshal(resp.Body(), &pr); err != nil {
			return fmt.Errorf("decode put response: %w", err)
		}
		out = pod.PutResult{Accepted: pr.Accepted, Reason: pr.Reason}
		if pr.Latest != nil {
			signer, err := hex.DecodeString(pr.Latest.Signer)
			if err != nil {
				return fmt.Errorf("bad signer encoding: %w", err)
			}
			out.Latest = &pod.SlotMetadata{
				Slot:    pr.Latest.Slot,
				Version: pr.Latest.Version,
				Signer:  signer,
			}
		}
		return nil
	})
	return out, err
}

// Owner reports the identity controlling the pod.
func (c *Client) Owner(ctx context.Context, ref string) (string, error) {
	var out string
	err := c.call(ctx, func() error {
		resp, err := c.resty.R().
			SetContext(ctx).
			Get(podPath(ref, "owner"))
		if err != nil {
			return err
		}
		if resp.StatusCode() != http.StatusOK {
			return nodeError(resp)
		}
		var or ownerResponseJSON
		if err := sonic.Unmarshal(resp.Body(), &or); err != nil {
			return fmt.Errorf("decode owner response: %w", err)
		}
		out = or.Owner
		return nil
	})
	return out, err
}

// Call evaluates a read-only contract function on the node and returns the
// node's textual encoding of the result.
func (c *Client) Call(ctx context.Context, contract, function string, args []string) (string, error) {
	var out string
	err := c.call(ctx, func() error {
		body, err := sonic.Marshal(readonlyRequestJSON{Args: args})
		if err != nil {
			return err
		}
		resp, err := c.resty.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post("/v1/contracts/" + url.PathEscape(contract) + "/readonly/" + url.PathEscape(function))
		if err != nil {
			return err
		}
		if resp.StatusCode() != http.StatusOK {
			return nodeError(resp)
		}
		var rr readonlyResponseJSON
		if err := sonic.Unmarshal(resp.Body(), &rr); err != nil {
			return fmt.Errorf("decode readonly response: %w", err)
		}
		if rr.Error != "" {
			return fmt.Errorf("readonly call failed: %s", rr.Error)
		}
		out = rr.Result
		return nil
	})
	return out, err
}

func podPath(ref, tail string) string {
	return "/v1/pods/" + url.PathEscape(ref) + "/" + tail
}

func nodeError(resp *resty.Response) error {
	return fmt.Errorf("node returned %d: %s", resp.StatusCode(), resp.String())
}
