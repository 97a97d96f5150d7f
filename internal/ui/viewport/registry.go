// Package viewport tracks the forest of rectangular drawing regions a page
// declares. Viewports are never deleted within a page; they are hidden or
// resized, and the renderer consumes them in reverse creation order.
package viewport

import (
	"sync"

	"github.com/wrbnet/wrbhost/internal/wrberr"
)

// MaxCoordinate bounds the drawable coordinate space. Origin plus extent must
// stay below it on both axes so positions survive 16-bit terminal protocols.
const MaxCoordinate = 65536

// Viewport is one rectangular region. Prev chains viewports in reverse
// creation order; Parent is set for nested viewports.
type Viewport struct {
	ID       uint64
	StartRow uint64
	StartCol uint64
	NumRows  uint64
	NumCols  uint64
	Visible  bool
	Parent   *uint64
	Prev     *uint64
}

// Registry owns every viewport for one page.
type Registry struct {
	mu    sync.RWMutex
	table map[uint64]*Viewport
	last  *uint64
	dirty map[uint64]struct{}

	rootRows uint64
	rootCols uint64

	// enumerationCap preserves the legacy fixed-step traversal when nonzero.
	enumerationCap int
}

// NewRegistry creates an empty registry with unbounded enumeration.
func NewRegistry() *Registry {
	return &Registry{
		table: make(map[uint64]*Viewport),
		dirty: make(map[uint64]struct{}),
	}
}

// SetEnumerationCap limits Enumerate to n results. Zero means unbounded.
// Exists for integrators that depend on the legacy 20-item traversal.
func (r *Registry) SetEnumerationCap(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enumerationCap = n
}

// SetRootExtents records the page's overall drawing area, the terminal
// rectangle every root viewport is placed within.
func (r *Registry) SetRootExtents(numRows, numCols uint64) *wrberr.Error {
	if numRows >= MaxCoordinate || numCols >= MaxCoordinate {
		return wrberr.New(wrberr.CodeInvalid,
			"root extents (%d,%d) exceed coordinate space", numRows, numCols)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rootRows = numRows
	r.rootCols = numCols
	return nil
}

// RootExtents reports the page's drawing area. Zero values mean the page
// never declared one and the renderer should use the terminal size.
func (r *Registry) RootExtents() (numRows, numCols uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rootRows, r.rootCols
}

func validGeometry(startRow, startCol, numRows, numCols uint64) bool {
	return startRow+numRows < MaxCoordinate && startCol+numCols < MaxCoordinate
}

// CreateRoot declares a top-level viewport.
func (r *Registry) CreateRoot(id, startRow, startCol, numRows, numCols uint64) *wrberr.Error {
	return r.create(id, nil, startRow, startCol, numRows, numCols)
}

// CreateChild declares a viewport nested inside parent.
func (r *Registry) CreateChild(id, parent, startRow, startCol, numRows, numCols uint64) *wrberr.Error {
	return r.create(id, &parent, startRow, startCol, numRows, numCols)
}

func (r *Registry) create(id uint64, parent *uint64, startRow, startCol, numRows, numCols uint64) *wrberr.Error {
	if !validGeometry(startRow, startCol, numRows, numCols) {
		return wrberr.New(wrberr.CodeInvalid,
			"viewport %d: geometry (%d,%d)+(%d,%d) exceeds coordinate space",
			id, startRow, startCol, numRows, numCols)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.table[id]; ok {
		return wrberr.New(wrberr.CodeExists, "viewport %d already exists", id)
	}
	if parent != nil {
		if _, ok := r.table[*parent]; !ok {
			return wrberr.New(wrberr.CodeNotFound, "viewport %d: no parent %d", id, *parent)
		}
	}

	vp := &Viewport{
		ID:       id,
		StartRow: startRow,
		StartCol: startCol,
		NumRows:  numRows,
		NumCols:  numCols,
		Visible:  true,
		Parent:   parent,
		Prev:     r.last,
	}
	r.table[id] = vp
	last := id
	r.last = &last
	r.dirty[id] = struct{}{}
	return nil
}

// SetDimensions resizes a viewport, re-validating bounds against its origin.
func (r *Registry) SetDimensions(id, numRows, numCols uint64) *wrberr.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	vp, ok := r.table[id]
	if !ok {
		return wrberr.New(wrberr.CodeNotFound, "no viewport %d", id)
	}
	if !validGeometry(vp.StartRow, vp.StartCol, numRows, numCols) {
		return wrberr.New(wrberr.CodeInvalid,
			"viewport %d: new extents (%d,%d) exceed coordinate space", id, numRows, numCols)
	}
	vp.NumRows = numRows
	vp.NumCols = numCols
	r.dirty[id] = struct{}{}
	return nil
}

// SetVisible toggles visibility, reporting whether the viewport existed.
// Visibility does not cascade to children.
func (r *Registry) SetVisible(id uint64, visible bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	vp, ok := r.table[id]
	if !ok {
		return false
	}
	vp.Visible = visible
	r.dirty[id] = struct{}{}
	return true
}

// Get returns a copy of the viewport, if present.
func (r *Registry) Get(id uint64) (Viewport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vp, ok := r.table[id]
	if !ok {
		return Viewport{}, false
	}
	return *vp, true
}

// Enumerate walks the prev chain from cursor (or from the most recently
// created viewport when cursor is nil), yielding viewports in reverse
// creation order.
func (r *Registry) Enumerate(cursor *uint64) []Viewport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	at := cursor
	if at == nil {
		at = r.last
	}
	var out []Viewport
	for at != nil {
		if r.enumerationCap > 0 && len(out) >= r.enumerationCap {
			break
		}
		vp, ok := r.table[*at]
		if !ok {
			break
		}
		out = append(out, *vp)
		at = vp.Prev
	}
	return out
}

// TakeDirty drains the ids mutated since the last drain.
func (r *Registry) TakeDirty() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint64, 0, len(r.dirty))
	for id := range r.dirty {
		out = append(out, id)
	}
	r.dirty = make(map[uint64]struct{})
	return out
}

// Len reports the number of declared viewports.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.table)
}
