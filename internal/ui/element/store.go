package element

import (
	"sync"

	"github.com/wrbnet/wrbhost/internal/wrberr"
)

// DynamicCapacity bounds the per-page dynamic element list. Exceeding it is
// a failure, not growth; dynamic elements are re-declared every tick and a
// page that leaks them would otherwise grow without bound.
const DynamicCapacity = 1024

// Store is the append-only element catalog for one page. Static elements
// persist for the page's lifetime; dynamic elements live in a separate,
// clearable list.
type Store struct {
	mu sync.RWMutex

	catalog    map[ID]Descriptor
	nextStatic uint64

	texts      map[ID]*Text
	prints     map[ID]*Print
	buttons    map[ID]*Button
	checkboxes map[ID]*Checkbox
	textlines  map[ID]*TextLine
	textareas  map[ID]*TextArea

	nextDynamic   uint64
	dynamicTexts  []*DynamicText
	dynamicPrints []*DynamicPrint

	// per-viewport text color overrides; global widget defaults
	staticColors  map[uint64]ColorPair
	dynamicColors map[uint64]ColorPair
	widgetColors  map[Kind]ColorPair
}

// NewStore creates an empty element store.
func NewStore() *Store {
	return &Store{
		catalog:       make(map[ID]Descriptor),
		texts:         make(map[ID]*Text),
		prints:        make(map[ID]*Print),
		buttons:       make(map[ID]*Button),
		checkboxes:    make(map[ID]*Checkbox),
		textlines:     make(map[ID]*TextLine),
		textareas:     make(map[ID]*TextArea),
		staticColors:  make(map[uint64]ColorPair),
		dynamicColors: make(map[uint64]ColorPair),
		widgetColors:  make(map[Kind]ColorPair),
	}
}

func (s *Store) allocStatic(viewport uint64, kind Kind) Descriptor {
	id := StaticID(s.nextStatic)
	s.nextStatic++
	d := Descriptor{ID: id, Viewport: viewport, Kind: kind}
	s.catalog[id] = d
	return d
}

// AddText registers a static positioned text run and returns its id.
func (s *Store) AddText(viewport, row, col uint64, src TextSource) ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.allocStatic(viewport, KindText)
	s.texts[d.ID] = &Text{
		Descriptor: d,
		Row:        row,
		Col:        col,
		Colors:     s.staticColorsFor(viewport),
		Source:     src,
	}
	return d.ID
}

// AddPrint registers cursor-following static output.
func (s *Store) AddPrint(viewport uint64, cursor *struct{ Row, Col uint64 }, src TextSource, newline bool) ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.allocStatic(viewport, KindPrint)
	s.prints[d.ID] = &Print{
		Descriptor: d,
		Cursor:     cursor,
		Colors:     s.staticColorsFor(viewport),
		Newline:    newline,
		Source:     src,
	}
	return d.ID
}

// AddButton registers a button.
func (s *Store) AddButton(viewport, row, col uint64, text string) ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.allocStatic(viewport, KindButton)
	s.buttons[d.ID] = &Button{
		Descriptor:    d,
		Row:           row,
		Col:           col,
		Text:          text,
		Colors:        s.widgetColorsFor(KindButton),
		FocusedColors: invert(s.widgetColorsFor(KindButton)),
	}
	return d.ID
}

// AddCheckbox registers a checkbox group. Option lists beyond
// CheckboxMaxOptions fail Invalid.
func (s *Store) AddCheckbox(viewport, row, col uint64, options []CheckboxOption) (ID, *wrberr.Error) {
	if len(options) > CheckboxMaxOptions {
		return ID{}, wrberr.New(wrberr.CodeInvalid,
			"checkbox: %d options exceeds maximum %d", len(options), CheckboxMaxOptions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.allocStatic(viewport, KindCheckbox)
	opts := make([]CheckboxOption, len(options))
	copy(opts, options)
	s.checkboxes[d.ID] = &Checkbox{
		Descriptor:    d,
		Row:           row,
		Col:           col,
		Options:       opts,
		Colors:        s.widgetColorsFor(KindCheckbox),
		FocusedColors: invert(s.widgetColorsFor(KindCheckbox)),
		SelectorColor: ColorWhite,
	}
	return d.ID, nil
}

// AddTextLine registers a single-line input.
func (s *Store) AddTextLine(viewport, row, col, maxLen uint64, text string) ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.allocStatic(viewport, KindTextLine)
	s.textlines[d.ID] = &TextLine{
		Descriptor:    d,
		Row:           row,
		Col:           col,
		Text:          text,
		MaxLen:        maxLen,
		Colors:        s.widgetColorsFor(KindTextLine),
		FocusedColors: invert(s.widgetColorsFor(KindTextLine)),
	}
	return d.ID
}

// AddTextArea registers a multi-line input.
func (s *Store) AddTextArea(viewport, row, col, numRows, numCols, maxLen uint64) ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.allocStatic(viewport, KindTextArea)
	s.textareas[d.ID] = &TextArea{
		Descriptor:    d,
		Row:           row,
		Col:           col,
		NumRows:       numRows,
		NumCols:       numCols,
		MaxLen:        maxLen,
		Colors:        s.widgetColorsFor(KindTextArea),
		FocusedColors: invert(s.widgetColorsFor(KindTextArea)),
	}
	return d.ID
}

// AddDynamicText declares a positioned text run for this tick. Text is
// always carried by cache handle.
func (s *Store) AddDynamicText(viewport, row, col, handle uint64) (ID, *wrberr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.dynamicTexts)+len(s.dynamicPrints) >= DynamicCapacity {
		return ID{}, wrberr.New(wrberr.CodeInvalid,
			"dynamic element capacity %d exhausted", DynamicCapacity)
	}
	id := DynamicID(s.nextDynamic)
	s.nextDynamic++
	s.dynamicTexts = append(s.dynamicTexts, &DynamicText{
		Descriptor: Descriptor{ID: id, Viewport: viewport, Kind: KindText},
		Row:        row,
		Col:        col,
		Colors:     s.dynamicColorsFor(viewport),
		Handle:     handle,
	})
	return id, nil
}

// AddDynamicPrint declares cursor-following output for this tick.
func (s *Store) AddDynamicPrint(viewport, handle uint64, newline bool) (ID, *wrberr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.dynamicTexts)+len(s.dynamicPrints) >= DynamicCapacity {
		return ID{}, wrberr.New(wrberr.CodeInvalid,
			"dynamic element capacity %d exhausted", DynamicCapacity)
	}
	id := DynamicID(s.nextDynamic)
	s.nextDynamic++
	s.dynamicPrints = append(s.dynamicPrints, &DynamicPrint{
		Descriptor: Descriptor{ID: id, Viewport: viewport, Kind: KindPrint},
		Colors:     s.dynamicColorsFor(viewport),
		Newline:    newline,
		Handle:     handle,
	})
	return id, nil
}

// ClearViewport removes every dynamic element bound to the viewport. Static
// elements are never affected; this is the model's only deletion path.
func (s *Store) ClearViewport(viewport uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	texts := s.dynamicTexts[:0]
	for _, dt := range s.dynamicTexts {
		if dt.Viewport != viewport {
			texts = append(texts, dt)
		}
	}
	s.dynamicTexts = texts

	prints := s.dynamicPrints[:0]
	for _, dp := range s.dynamicPrints {
		if dp.Viewport != viewport {
			prints = append(prints, dp)
		}
	}
	s.dynamicPrints = prints
}

// SetStaticColors overrides the static text colors for a viewport.
func (s *Store) SetStaticColors(viewport uint64, colors ColorPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staticColors[viewport] = colors
}

// SetDynamicColors overrides the dynamic text colors for a viewport.
func (s *Store) SetDynamicColors(viewport uint64, colors ColorPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dynamicColors[viewport] = colors
}

// SetWidgetColors overrides the global default colors for a widget kind.
func (s *Store) SetWidgetColors(kind Kind, colors ColorPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widgetColors[kind] = colors
}

func (s *Store) staticColorsFor(viewport uint64) ColorPair {
	if c, ok := s.staticColors[viewport]; ok {
		return c
	}
	return DefaultTextColors()
}

func (s *Store) dynamicColorsFor(viewport uint64) ColorPair {
	if c, ok := s.dynamicColors[viewport]; ok {
		return c
	}
	return DefaultTextColors()
}

func (s *Store) widgetColorsFor(kind Kind) ColorPair {
	if c, ok := s.widgetColors[kind]; ok {
		return c
	}
	return DefaultTextColors()
}

func invert(c ColorPair) ColorPair {
	return ColorPair{Fg: c.Bg, Bg: c.Fg}
}

// GetDescriptor looks up a catalog entry. Absent ids report not-found;
// render code must tolerate stale indices.
func (s *Store) GetDescriptor(id ID) (Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.catalog[id]
	return d, ok
}

// GetText returns a static text payload by id.
func (s *Store) GetText(id ID) (Text, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.texts[id]; ok {
		return *t, true
	}
	return Text{}, false
}

// GetPrint returns a static print payload by id.
func (s *Store) GetPrint(id ID) (Print, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.prints[id]; ok {
		return *p, true
	}
	return Print{}, false
}

// GetButton returns a button payload by id.
func (s *Store) GetButton(id ID) (Button, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.buttons[id]; ok {
		return *b, true
	}
	return Button{}, false
}

// GetCheckbox returns a checkbox payload by id.
func (s *Store) GetCheckbox(id ID) (Checkbox, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.checkboxes[id]; ok {
		out := *c
		out.Options = append([]CheckboxOption(nil), c.Options...)
		return out, true
	}
	return Checkbox{}, false
}

// GetTextLine returns a textline payload by id.
func (s *Store) GetTextLine(id ID) (TextLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tl, ok := s.textlines[id]; ok {
		return *tl, true
	}
	return TextLine{}, false
}

// GetTextArea returns a textarea payload by id.
func (s *Store) GetTextArea(id ID) (TextArea, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ta, ok := s.textareas[id]; ok {
		return *ta, true
	}
	return TextArea{}, false
}

// SetTextLineText updates an input's contents, e.g. from a keypress event.
func (s *Store) SetTextLineText(id ID, text string, cursor uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	tl, ok := s.textlines[id]
	if !ok {
		return false
	}
	if tl.MaxLen > 0 && uint64(len(text)) > tl.MaxLen {
		text = text[:tl.MaxLen]
	}
	tl.Text = text
	tl.Cursor = cursor
	return true
}

// SetTextAreaText updates a textarea's contents.
func (s *Store) SetTextAreaText(id ID, text string, cursor uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ta, ok := s.textareas[id]
	if !ok {
		return false
	}
	if ta.MaxLen > 0 && uint64(len(text)) > ta.MaxLen {
		text = text[:ta.MaxLen]
	}
	ta.Text = text
	ta.Cursor = cursor
	return true
}

// SetCheckboxSelected toggles one option row.
func (s *Store) SetCheckboxSelected(id ID, option int, selected bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checkboxes[id]
	if !ok || option < 0 || option >= len(c.Options) {
		return false
	}
	c.Options[option].Selected = selected
	return true
}

// DynamicTextsFor returns this tick's dynamic text runs for a viewport.
func (s *Store) DynamicTextsFor(viewport uint64) []DynamicText {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DynamicText
	for _, dt := range s.dynamicTexts {
		if dt.Viewport == viewport {
			out = append(out, *dt)
		}
	}
	return out
}

// DynamicPrintsFor returns this tick's dynamic print runs for a viewport.
func (s *Store) DynamicPrintsFor(viewport uint64) []DynamicPrint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DynamicPrint
	for _, dp := range s.dynamicPrints {
		if dp.Viewport == viewport {
			out = append(out, *dp)
		}
	}
	return out
}

// StaticFor enumerates static catalog descriptors bound to a viewport.
func (s *Store) StaticFor(viewport uint64) []Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Descriptor
	for _, d := range s.catalog {
		if d.Viewport == viewport {
			out = append(out, d)
		}
	}
	return out
}

// DynamicLen reports the current dynamic element count.
func (s *Store) DynamicLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dynamicTexts) + len(s.dynamicPrints)
}

// Len reports the total element count, static catalog plus live dynamic.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.catalog) + len(s.dynamicTexts) + len(s.dynamicPrints)
}
