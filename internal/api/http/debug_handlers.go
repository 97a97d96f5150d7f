// Package http exposes read-only page state over the local debug server.
package http

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wrbnet/wrbhost/internal/infrastructure/monitoring"
	"github.com/wrbnet/wrbhost/internal/runtime"
)

// DebugHandlers serves runtime state for local inspection tools. Every
// endpoint is a read; mutating the page stays with the script loop.
type DebugHandlers struct {
	rt      *runtime.Runtime
	metrics *monitoring.Metrics
	started time.Time
}

// NewDebugHandlers creates the handler set.
func NewDebugHandlers(rt *runtime.Runtime, metrics *monitoring.Metrics) *DebugHandlers {
	return &DebugHandlers{
		rt:      rt,
		metrics: metrics,
		started: time.Now(),
	}
}

// Health reports liveness and the page identity.
func (h *DebugHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"page_id":        string(h.rt.PageID),
		"uptime_seconds": time.Since(h.started).Seconds(),
	})
}

// Snapshot returns the aggregated counters.
func (h *DebugHandlers) Snapshot(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, monitoring.Snapshot{})
		return
	}
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}

// Viewports lists every viewport in z-order.
func (h *DebugHandlers) Viewports(c *gin.Context) {
	vps := h.rt.Viewports.Enumerate(nil)
	out := make([]gin.H, 0, len(vps))
	for _, vp := range vps {
		entry := gin.H{
			"id":        vp.ID,
			"start_row": vp.StartRow,
			"start_col": vp.StartCol,
			"num_rows":  vp.NumRows,
			"num_cols":  vp.NumCols,
			"visible":   vp.Visible,
		}
		if vp.Parent != nil {
			entry["parent"] = *vp.Parent
		}
		out = append(out, entry)
	}
	rows, cols := h.rt.Viewports.RootExtents()
	c.JSON(http.StatusOK, gin.H{
		"root_rows": rows,
		"root_cols": cols,
		"count":     len(out),
		"viewports": out,
	})
}

// Sessions lists open pod sessions.
func (h *DebugHandlers) Sessions(c *gin.Context) {
	sids := h.rt.Pods.Sessions()
	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })

	out := make([]gin.H, 0, len(sids))
	for _, sid := range sids {
		s, ok := h.rt.Pods.Get(sid)
		if !ok {
			continue
		}
		out = append(out, gin.H{
			"session_id":  s.ID,
			"backend_ref": s.Location.BackendRef,
			"slot_index":  s.Location.SlotIndex,
			"owned":       s.Owned,
			"app":         s.App,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(out),
		"sessions": out,
	})
}

// LastError reports the most recent host call failure, if any.
func (h *DebugHandlers) LastError(c *gin.Context) {
	err := h.rt.LastError()
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"error": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"error": gin.H{
			"code":    err.Code,
			"message": err.Message,
		},
	})
}

// Ops lists the registered host call names.
func (h *DebugHandlers) Ops(c *gin.Context) {
	ops := h.rt.Ops()
	sort.Strings(ops)
	c.JSON(http.StatusOK, gin.H{
		"count": len(ops),
		"ops":   ops,
	})
}
