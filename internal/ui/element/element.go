// Package element catalogs the UI elements a page declares: static widgets
// registered once at setup, and dynamic text re-declared every render tick.
package element

import "fmt"

// Kind identifies an element type. The numeric values double as the event
// category codes delivered to the page entry point.
type Kind uint8

const (
	KindText     Kind = 4
	KindPrint    Kind = 5
	KindButton   Kind = 6
	KindCheckbox Kind = 7
	KindTextLine Kind = 8
	KindTextArea Kind = 9
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPrint:
		return "print"
	case KindButton:
		return "button"
	case KindCheckbox:
		return "checkbox"
	case KindTextLine:
		return "textline"
	case KindTextArea:
		return "textarea"
	default:
		return "unknown"
	}
}

// Focusable reports whether the element kind participates in keyboard focus.
func (k Kind) Focusable() bool {
	switch k {
	case KindButton, KindCheckbox, KindTextLine, KindTextArea:
		return true
	default:
		return false
	}
}

// Class separates the two element id spaces.
type Class uint8

const (
	ClassStatic Class = iota
	ClassDynamic
)

// ID is a tagged element identifier. Static and dynamic elements draw from
// independent counters; tagging (rather than a large numeric offset) makes
// collision between the two spaces impossible.
type ID struct {
	Class Class
	Seq   uint64
}

// StaticID and DynamicID build tagged ids.
func StaticID(seq uint64) ID  { return ID{Class: ClassStatic, Seq: seq} }
func DynamicID(seq uint64) ID { return ID{Class: ClassDynamic, Seq: seq} }

// String renders the id in the host surface's textual form.
func (id ID) String() string {
	if id.Class == ClassDynamic {
		return fmt.Sprintf("d:%d", id.Seq)
	}
	return fmt.Sprintf("s:%d", id.Seq)
}

// ParseID parses the textual id form.
func ParseID(s string) (ID, bool) {
	var seq uint64
	if n, err := fmt.Sscanf(s, "s:%d", &seq); err == nil && n == 1 {
		return StaticID(seq), true
	}
	if n, err := fmt.Sscanf(s, "d:%d", &seq); err == nil && n == 1 {
		return DynamicID(seq), true
	}
	return ID{}, false
}

// Color is a 24-bit RGB terminal color.
type Color uint32

const (
	ColorWhite Color = 0xffffff
	ColorBlack Color = 0x000000
)

// ColorPair is a foreground/background pair.
type ColorPair struct {
	Fg Color
	Bg Color
}

// DefaultTextColors is the fixed white-on-black default for static and
// dynamic text.
func DefaultTextColors() ColorPair {
	return ColorPair{Fg: ColorWhite, Bg: ColorBlack}
}

// Descriptor is the catalog entry common to every element.
type Descriptor struct {
	ID       ID
	Viewport uint64
	Kind     Kind
}

// TextSource carries element text either inline or as a handle into the
// large-payload cache. Dynamic elements always use handles.
type TextSource struct {
	Inline string
	Handle uint64
	ByRef  bool
}

// InlineText and HandleText build the two source forms.
func InlineText(s string) TextSource      { return TextSource{Inline: s} }
func HandleText(handle uint64) TextSource { return TextSource{Handle: handle, ByRef: true} }

// Text is a static positioned text run.
type Text struct {
	Descriptor
	Row, Col uint64
	Colors   ColorPair
	Source   TextSource
}

// Print is cursor-following text output. Newline distinguishes print from
// println on the host surface.
type Print struct {
	Descriptor
	Cursor  *struct{ Row, Col uint64 }
	Colors  ColorPair
	Newline bool
	Source  TextSource
}

// Button is a focusable labelled control.
type Button struct {
	Descriptor
	Row, Col      uint64
	Text          string
	Colors        ColorPair
	FocusedColors ColorPair
}

// CheckboxOption is one selectable row of a checkbox group.
type CheckboxOption struct {
	Text     string
	Selected bool
}

// CheckboxMaxOptions bounds a checkbox group.
const CheckboxMaxOptions = 256

// Checkbox is a focusable multi-select option group.
type Checkbox struct {
	Descriptor
	Row, Col      uint64
	Options       []CheckboxOption
	Colors        ColorPair
	FocusedColors ColorPair
	SelectorColor Color
}

// TextLine is a single-line text input.
type TextLine struct {
	Descriptor
	Row, Col      uint64
	Text          string
	MaxLen        uint64
	Cursor        uint64
	Colors        ColorPair
	FocusedColors ColorPair
}

// TextArea is a multi-line text input with its own extents.
type TextArea struct {
	Descriptor
	Row, Col         uint64
	NumRows, NumCols uint64
	Text             string
	MaxLen           uint64
	Cursor           uint64
	Colors           ColorPair
	FocusedColors    ColorPair
}

// DynamicText is a positioned text run re-declared each tick.
type DynamicText struct {
	Descriptor
	Row, Col uint64
	Colors   ColorPair
	Handle   uint64
}

// DynamicPrint is cursor-following output re-declared each tick.
type DynamicPrint struct {
	Descriptor
	Colors  ColorPair
	Newline bool
	Handle  uint64
}
