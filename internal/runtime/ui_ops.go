package runtime

import (
	"context"

	"github.com/wrbnet/wrbhost/internal/ui/element"
	"github.com/wrbnet/wrbhost/internal/ui/viewport"
	"github.com/wrbnet/wrbhost/internal/wrberr"
)

func viewportMap(vp viewport.Viewport) map[string]interface{} {
	m := map[string]interface{}{
		"id":        vp.ID,
		"start_row": vp.StartRow,
		"start_col": vp.StartCol,
		"num_rows":  vp.NumRows,
		"num_cols":  vp.NumCols,
		"visible":   vp.Visible,
	}
	if vp.Parent != nil {
		m["parent"] = *vp.Parent
	}
	if vp.Prev != nil {
		m["prev"] = *vp.Prev
	}
	return m
}

func (r *Runtime) setRoot(_ context.Context, params Params) *Result {
	rows, ok := params.Uint64("num_rows")
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_root: num_rows required")
	}
	cols, ok := params.Uint64("num_cols")
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_root: num_cols required")
	}
	if err := r.Viewports.SetRootExtents(rows, cols); err != nil {
		return failure(err)
	}
	return success(nil)
}

func (r *Runtime) viewportCreateRoot(_ context.Context, params Params) *Result {
	id, ok := params.Uint64("id")
	if !ok {
		return failuref(wrberr.CodeInvalid, "create_root: id required")
	}
	startRow, _ := params.Uint64("start_row")
	startCol, _ := params.Uint64("start_col")
	numRows, _ := params.Uint64("num_rows")
	numCols, _ := params.Uint64("num_cols")
	if err := r.Viewports.CreateRoot(id, startRow, startCol, numRows, numCols); err != nil {
		return failure(err)
	}
	return success(map[string]interface{}{"id": id})
}

func (r *Runtime) viewportCreateChild(_ context.Context, params Params) *Result {
	id, ok := params.Uint64("id")
	if !ok {
		return failuref(wrberr.CodeInvalid, "create_child: id required")
	}
	parent, ok := params.Uint64("parent")
	if !ok {
		return failuref(wrberr.CodeInvalid, "create_child: parent required")
	}
	startRow, _ := params.Uint64("start_row")
	startCol, _ := params.Uint64("start_col")
	numRows, _ := params.Uint64("num_rows")
	numCols, _ := params.Uint64("num_cols")
	if err := r.Viewports.CreateChild(id, parent, startRow, startCol, numRows, numCols); err != nil {
		return failure(err)
	}
	return success(map[string]interface{}{"id": id})
}

func (r *Runtime) viewportSetDims(_ context.Context, params Params) *Result {
	id, ok := params.Uint64("id")
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_dims: id required")
	}
	numRows, _ := params.Uint64("num_rows")
	numCols, _ := params.Uint64("num_cols")
	if err := r.Viewports.SetDimensions(id, numRows, numCols); err != nil {
		return failure(err)
	}
	return success(nil)
}

func (r *Runtime) viewportSetVisible(_ context.Context, params Params) *Result {
	id, ok := params.Uint64("id")
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_visible: id required")
	}
	visible, ok := params.Bool("visible")
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_visible: visible required")
	}
	existed := r.Viewports.SetVisible(id, visible)
	return success(map[string]interface{}{"existed": existed})
}

func (r *Runtime) viewportGet(_ context.Context, params Params) *Result {
	id, ok := params.Uint64("id")
	if !ok {
		return failuref(wrberr.CodeInvalid, "viewport.get: id required")
	}
	vp, ok := r.Viewports.Get(id)
	if !ok {
		return success(nil)
	}
	return success(viewportMap(vp))
}

func (r *Runtime) viewportEnumerate(_ context.Context, params Params) *Result {
	var cursor *uint64
	if c, ok := params.Uint64("cursor"); ok {
		cursor = &c
	}
	vps := r.Viewports.Enumerate(cursor)
	out := make([]interface{}, 0, len(vps))
	for _, vp := range vps {
		out = append(out, viewportMap(vp))
	}
	return success(map[string]interface{}{"viewports": out})
}

// textSource reads the inline-or-handle text argument shared by the static
// content calls.
func textSource(params Params) (element.TextSource, *wrberr.Error) {
	if text, ok := params.String("text"); ok {
		return element.InlineText(text), nil
	}
	if handle, ok := params.Uint64("handle"); ok {
		return element.HandleText(handle), nil
	}
	return element.TextSource{}, wrberr.New(wrberr.CodeInvalid, "text or handle required")
}

func (r *Runtime) staticAddText(_ context.Context, params Params) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_text: viewport required")
	}
	row, _ := params.Uint64("row")
	col, _ := params.Uint64("col")
	src, werr := textSource(params)
	if werr != nil {
		return failure(werr)
	}
	id := r.Elements.AddText(vp, row, col, src)
	return success(map[string]interface{}{"element": id.String()})
}

func (r *Runtime) staticAddPrint(_ context.Context, params Params) *Result {
	return r.addPrint(params, false)
}

func (r *Runtime) staticAddPrintln(_ context.Context, params Params) *Result {
	return r.addPrint(params, true)
}

func (r *Runtime) addPrint(params Params, newline bool) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_print: viewport required")
	}
	src, werr := textSource(params)
	if werr != nil {
		return failure(werr)
	}
	var cursor *struct{ Row, Col uint64 }
	if row, ok := params.Uint64("row"); ok {
		col, _ := params.Uint64("col")
		cursor = &struct{ Row, Col uint64 }{Row: row, Col: col}
	}
	id := r.Elements.AddPrint(vp, cursor, src, newline)
	return success(map[string]interface{}{"element": id.String()})
}

func colorPair(params Params) (element.ColorPair, bool) {
	fg, okF := params.Uint64("fg")
	bg, okB := params.Uint64("bg")
	if !okF || !okB {
		return element.ColorPair{}, false
	}
	return element.ColorPair{Fg: element.Color(fg), Bg: element.Color(bg)}, true
}

func (r *Runtime) staticSetColors(_ context.Context, params Params) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_colors: viewport required")
	}
	colors, ok := colorPair(params)
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_colors: fg and bg required")
	}
	r.Elements.SetStaticColors(vp, colors)
	return success(nil)
}

func (r *Runtime) dynamicSetColors(_ context.Context, params Params) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_colors: viewport required")
	}
	colors, ok := colorPair(params)
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_colors: fg and bg required")
	}
	r.Elements.SetDynamicColors(vp, colors)
	return success(nil)
}

func (r *Runtime) dynamicAddText(_ context.Context, params Params) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_text: viewport required")
	}
	row, _ := params.Uint64("row")
	col, _ := params.Uint64("col")
	handle, ok := params.Uint64("handle")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_text: handle required")
	}
	id, werr := r.Elements.AddDynamicText(vp, row, col, handle)
	if werr != nil {
		return failure(werr)
	}
	return success(map[string]interface{}{"element": id.String()})
}

func (r *Runtime) dynamicAddPrint(_ context.Context, params Params) *Result {
	return r.addDynamicPrint(params, false)
}

func (r *Runtime) dynamicAddPrintln(_ context.Context, params Params) *Result {
	return r.addDynamicPrint(params, true)
}

func (r *Runtime) addDynamicPrint(params Params, newline bool) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_print: viewport required")
	}
	handle, ok := params.Uint64("handle")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_print: handle required")
	}
	id, werr := r.Elements.AddDynamicPrint(vp, handle, newline)
	if werr != nil {
		return failure(werr)
	}
	return success(map[string]interface{}{"element": id.String()})
}

func (r *Runtime) dynamicClear(_ context.Context, params Params) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "clear: viewport required")
	}
	r.Elements.ClearViewport(vp)
	return success(nil)
}

func (r *Runtime) dynamicTexts(_ context.Context, params Params) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "texts: viewport required")
	}
	dts := r.Elements.DynamicTextsFor(vp)
	out := make([]interface{}, 0, len(dts))
	for _, dt := range dts {
		out = append(out, map[string]interface{}{
			"element": dt.ID.String(),
			"row":     dt.Row,
			"col":     dt.Col,
			"handle":  dt.Handle,
			"fg":      uint32(dt.Colors.Fg),
			"bg":      uint32(dt.Colors.Bg),
		})
	}
	return success(map[string]interface{}{"texts": out})
}

func (r *Runtime) dynamicPrints(_ context.Context, params Params) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "prints: viewport required")
	}
	dps := r.Elements.DynamicPrintsFor(vp)
	out := make([]interface{}, 0, len(dps))
	for _, dp := range dps {
		out = append(out, map[string]interface{}{
			"element": dp.ID.String(),
			"handle":  dp.Handle,
			"newline": dp.Newline,
			"fg":      uint32(dp.Colors.Fg),
			"bg":      uint32(dp.Colors.Bg),
		})
	}
	return success(map[string]interface{}{"prints": out})
}

func (r *Runtime) widgetAddButton(_ context.Context, params Params) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_button: viewport required")
	}
	row, _ := params.Uint64("row")
	col, _ := params.Uint64("col")
	text, ok := params.String("text")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_button: text required")
	}
	id := r.Elements.AddButton(vp, row, col, text)
	return success(map[string]interface{}{"element": id.String()})
}

func (r *Runtime) widgetAddCheckbox(_ context.Context, params Params) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_checkbox: viewport required")
	}
	row, _ := params.Uint64("row")
	col, _ := params.Uint64("col")
	labels, ok := params.Strings("options")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_checkbox: options required")
	}
	options := make([]element.CheckboxOption, 0, len(labels))
	for _, label := range labels {
		options = append(options, element.CheckboxOption{Text: label})
	}
	id, werr := r.Elements.AddCheckbox(vp, row, col, options)
	if werr != nil {
		return failure(werr)
	}
	return success(map[string]interface{}{"element": id.String()})
}

func (r *Runtime) widgetAddTextLine(_ context.Context, params Params) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_textline: viewport required")
	}
	row, _ := params.Uint64("row")
	col, _ := params.Uint64("col")
	maxLen, _ := params.Uint64("max_len")
	text, _ := params.String("text")
	id := r.Elements.AddTextLine(vp, row, col, maxLen, text)
	return success(map[string]interface{}{"element": id.String()})
}

func (r *Runtime) widgetAddTextArea(_ context.Context, params Params) *Result {
	vp, ok := params.Uint64("viewport")
	if !ok {
		return failuref(wrberr.CodeInvalid, "add_textarea: viewport required")
	}
	row, _ := params.Uint64("row")
	col, _ := params.Uint64("col")
	numRows, _ := params.Uint64("num_rows")
	numCols, _ := params.Uint64("num_cols")
	maxLen, _ := params.Uint64("max_len")
	id := r.Elements.AddTextArea(vp, row, col, numRows, numCols, maxLen)
	return success(map[string]interface{}{"element": id.String()})
}

func (r *Runtime) widgetSetColors(_ context.Context, params Params) *Result {
	kind, ok := params.Uint64("kind")
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_colors: kind required")
	}
	colors, ok := colorPair(params)
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_colors: fg and bg required")
	}
	r.Elements.SetWidgetColors(element.Kind(kind), colors)
	return success(nil)
}

// elementID reads the textual element id argument.
func elementID(params Params) (element.ID, *wrberr.Error) {
	s, ok := params.String("element")
	if !ok {
		return element.ID{}, wrberr.New(wrberr.CodeInvalid, "element id required")
	}
	id, ok := element.ParseID(s)
	if !ok {
		return element.ID{}, wrberr.New(wrberr.CodeInvalid, "malformed element id %q", s)
	}
	return id, nil
}

func (r *Runtime) elementDescriptor(_ context.Context, params Params) *Result {
	id, werr := elementID(params)
	if werr != nil {
		return failure(werr)
	}
	d, ok := r.Elements.GetDescriptor(id)
	if !ok {
		return success(nil)
	}
	return success(map[string]interface{}{
		"element":  d.ID.String(),
		"viewport": d.Viewport,
		"kind":     uint8(d.Kind),
	})
}

func sourceMap(src element.TextSource) map[string]interface{} {
	if src.ByRef {
		return map[string]interface{}{"handle": src.Handle}
	}
	return map[string]interface{}{"text": src.Inline}
}

func (r *Runtime) elementGetText(_ context.Context, params Params) *Result {
	id, werr := elementID(params)
	if werr != nil {
		return failure(werr)
	}
	txt, ok := r.Elements.GetText(id)
	if !ok {
		return success(nil)
	}
	return success(map[string]interface{}{
		"element": txt.ID.String(),
		"row":     txt.Row,
		"col":     txt.Col,
		"source":  sourceMap(txt.Source),
		"fg":      uint32(txt.Colors.Fg),
		"bg":      uint32(txt.Colors.Bg),
	})
}

func (r *Runtime) elementGetPrint(_ context.Context, params Params) *Result {
	id, werr := elementID(params)
	if werr != nil {
		return failure(werr)
	}
	pr, ok := r.Elements.GetPrint(id)
	if !ok {
		return success(nil)
	}
	m := map[string]interface{}{
		"element": pr.ID.String(),
		"source":  sourceMap(pr.Source),
		"newline": pr.Newline,
		"fg":      uint32(pr.Colors.Fg),
		"bg":      uint32(pr.Colors.Bg),
	}
	if pr.Cursor != nil {
		m["row"] = pr.Cursor.Row
		m["col"] = pr.Cursor.Col
	}
	return success(m)
}

func (r *Runtime) elementGetButton(_ context.Context, params Params) *Result {
	id, werr := elementID(params)
	if werr != nil {
		return failure(werr)
	}
	b, ok := r.Elements.GetButton(id)
	if !ok {
		return success(nil)
	}
	return success(map[string]interface{}{
		"element": b.ID.String(),
		"row":     b.Row,
		"col":     b.Col,
		"text":    b.Text,
	})
}

func (r *Runtime) elementGetCheckbox(_ context.Context, params Params) *Result {
	id, werr := elementID(params)
	if werr != nil {
		return failure(werr)
	}
	cb, ok := r.Elements.GetCheckbox(id)
	if !ok {
		return success(nil)
	}
	options := make([]interface{}, 0, len(cb.Options))
	for _, opt := range cb.Options {
		options = append(options, map[string]interface{}{
			"text":     opt.Text,
			"selected": opt.Selected,
		})
	}
	return success(map[string]interface{}{
		"element": cb.ID.String(),
		"row":     cb.Row,
		"col":     cb.Col,
		"options": options,
	})
}

func (r *Runtime) elementGetTextLine(_ context.Context, params Params) *Result {
	id, werr := elementID(params)
	if werr != nil {
		return failure(werr)
	}
	tl, ok := r.Elements.GetTextLine(id)
	if !ok {
		return success(nil)
	}
	return success(map[string]interface{}{
		"element": tl.ID.String(),
		"row":     tl.Row,
		"col":     tl.Col,
		"text":    tl.Text,
		"max_len": tl.MaxLen,
		"cursor":  tl.Cursor,
	})
}

func (r *Runtime) elementGetTextArea(_ context.Context, params Params) *Result {
	id, werr := elementID(params)
	if werr != nil {
		return failure(werr)
	}
	ta, ok := r.Elements.GetTextArea(id)
	if !ok {
		return success(nil)
	}
	return success(map[string]interface{}{
		"element":  ta.ID.String(),
		"row":      ta.Row,
		"col":      ta.Col,
		"num_rows": ta.NumRows,
		"num_cols": ta.NumCols,
		"text":     ta.Text,
		"max_len":  ta.MaxLen,
		"cursor":   ta.Cursor,
	})
}

func (r *Runtime) payloadStore(_ context.Context, params Params) *Result {
	handle, ok := params.Uint64("handle")
	if !ok {
		return failuref(wrberr.CodeInvalid, "store: handle required")
	}
	text, ok := params.String("text")
	if !ok {
		return failuref(wrberr.CodeInvalid, "store: text required")
	}
	r.Texts.Store(handle, text)
	return success(nil)
}

func (r *Runtime) payloadLoad(_ context.Context, params Params) *Result {
	handle, ok := params.Uint64("handle")
	if !ok {
		return failuref(wrberr.CodeInvalid, "load: handle required")
	}
	text, ok := r.Texts.Load(handle)
	if !ok {
		return success(nil)
	}
	return success(map[string]interface{}{"text": text})
}

func (r *Runtime) payloadBypassLoad(_ context.Context, params Params) *Result {
	handle, ok := params.Uint64("handle")
	if !ok {
		return failuref(wrberr.CodeInvalid, "bypass_load: handle required")
	}
	text, ok := r.Texts.BypassLoad(handle)
	if !ok {
		return success(nil)
	}
	return success(map[string]interface{}{"text": text})
}
