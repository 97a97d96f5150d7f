package element

import (
	"testing"
)

func TestStaticAndDynamicIDSpacesDisjoint(t *testing.T) {
	s := NewStore()
	staticID := s.AddText(0, 0, 0, InlineText("hello"))
	dynID, err := s.AddDynamicText(0, 1, 0, 100)
	if err != nil {
		t.Fatal(err)
	}

	if staticID == dynID {
		t.Fatal("static and dynamic ids must never collide")
	}
	if staticID.Class != ClassStatic || dynID.Class != ClassDynamic {
		t.Error("ids carry the wrong class tags")
	}
	// both counters start at 0; the tag alone keeps them apart
	if staticID.Seq != 0 || dynID.Seq != 0 {
		t.Errorf("expected both seq 0, got %d and %d", staticID.Seq, dynID.Seq)
	}
}

func TestStaticAddsAreAdditive(t *testing.T) {
	s := NewStore()
	a := s.AddButton(0, 1, 1, "OK")
	b := s.AddButton(0, 1, 1, "OK")
	if a == b {
		t.Fatal("repeated adds must create new elements")
	}
	if _, ok := s.GetButton(a); !ok {
		t.Error("first button missing")
	}
	if _, ok := s.GetButton(b); !ok {
		t.Error("second button missing")
	}
}

func TestClearViewportScope(t *testing.T) {
	s := NewStore()
	staticID := s.AddText(1, 0, 0, InlineText("static"))
	if _, err := s.AddDynamicText(1, 0, 0, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddDynamicPrint(1, 11, true); err != nil {
		t.Fatal(err)
	}
	keep, err := s.AddDynamicText(2, 0, 0, 12)
	if err != nil {
		t.Fatal(err)
	}

	s.ClearViewport(1)

	if len(s.DynamicTextsFor(1)) != 0 || len(s.DynamicPrintsFor(1)) != 0 {
		t.Error("viewport 1 dynamic elements should be gone")
	}
	other := s.DynamicTextsFor(2)
	if len(other) != 1 || other[0].ID != keep {
		t.Error("viewport 2 dynamic elements must survive")
	}
	if _, ok := s.GetText(staticID); !ok {
		t.Error("static elements are never cleared")
	}
}

func TestDynamicCapacity(t *testing.T) {
	s := NewStore()
	for i := 0; i < DynamicCapacity; i++ {
		if _, err := s.AddDynamicText(0, 0, 0, uint64(i)); err != nil {
			t.Fatalf("add %d failed: %v", i, err)
		}
	}
	if _, err := s.AddDynamicText(0, 0, 0, 9999); err == nil {
		t.Fatal("expected capacity failure")
	}
	if s.DynamicLen() != DynamicCapacity {
		t.Errorf("prior entries corrupted: %d", s.DynamicLen())
	}
	// earlier entries still intact
	first := s.DynamicTextsFor(0)
	if len(first) != DynamicCapacity || first[0].Handle != 0 {
		t.Error("existing entries must be unchanged after the failed add")
	}
}

func TestAbsentLookupsReportNotFound(t *testing.T) {
	s := NewStore()
	if _, ok := s.GetDescriptor(StaticID(99)); ok {
		t.Error("absent descriptor should be not-found")
	}
	if _, ok := s.GetTextLine(StaticID(3)); ok {
		t.Error("absent textline should be not-found")
	}
}

func TestColorDefaultsAndOverrides(t *testing.T) {
	s := NewStore()
	id := s.AddText(5, 0, 0, InlineText("x"))
	txt, _ := s.GetText(id)
	if txt.Colors != DefaultTextColors() {
		t.Errorf("expected white-on-black default, got %+v", txt.Colors)
	}

	s.SetStaticColors(5, ColorPair{Fg: 0x00ff00, Bg: 0x000080})
	id2 := s.AddText(5, 1, 0, InlineText("y"))
	txt2, _ := s.GetText(id2)
	if txt2.Colors.Fg != 0x00ff00 || txt2.Colors.Bg != 0x000080 {
		t.Errorf("override not applied: %+v", txt2.Colors)
	}

	// widget defaults are global, not per viewport
	s.SetWidgetColors(KindButton, ColorPair{Fg: 0xff0000, Bg: ColorBlack})
	b, _ := s.GetButton(s.AddButton(9, 0, 0, "go"))
	if b.Colors.Fg != 0xff0000 {
		t.Errorf("widget default not applied: %+v", b.Colors)
	}
}

func TestCheckboxBounds(t *testing.T) {
	s := NewStore()
	opts := make([]CheckboxOption, CheckboxMaxOptions+1)
	if _, err := s.AddCheckbox(0, 0, 0, opts); err == nil {
		t.Fatal("expected Invalid for oversized option list")
	}

	id, err := s.AddCheckbox(0, 0, 0, []CheckboxOption{{Text: "a"}, {Text: "b"}})
	if err != nil {
		t.Fatal(err)
	}
	if !s.SetCheckboxSelected(id, 1, true) {
		t.Fatal("toggle failed")
	}
	cb, _ := s.GetCheckbox(id)
	if !cb.Options[1].Selected || cb.Options[0].Selected {
		t.Error("wrong option toggled")
	}
}

func TestIDTextualForm(t *testing.T) {
	if StaticID(7).String() != "s:7" || DynamicID(7).String() != "d:7" {
		t.Error("textual id form changed")
	}
	id, ok := ParseID("d:42")
	if !ok || id != DynamicID(42) {
		t.Errorf("parse failed: %v %v", id, ok)
	}
	if _, ok := ParseID("x:1"); ok {
		t.Error("bad prefix should not parse")
	}
}
