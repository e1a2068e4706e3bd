package storyboard

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const legacyProject = `{
  "meta": {"name": "Old", "createdAt": 1, "updatedAt": 2, "frameRate": 24, "aspectRatio": "16:9"},
  "conceptArt": {
    "characters": [
      {"id": "c1", "name": "Hero", "category": "characters", "createdAt": 5,
       "description": "lead",
       "images": [
         {"id": "i1", "dataUrl": "data:image/jpeg;base64,AA==", "width": 10, "height": 5},
         {"id": "i2", "dataUrl": "data:image/jpeg;base64,AQ==", "width": 20, "height": 10}
       ]}
    ],
    "locations": [
      {"id": "l1", "name": "Town", "category": "locations", "createdAt": 6,
       "slots": [{"image": null, "description": "dusk"}]}
    ],
    "props": [
      {"id": "p1", "name": "Lamp", "category": "props", "createdAt": 7,
       "description": "x",
       "images": [{"id": "i3", "dataUrl": "data:image/jpeg;base64,Ag==", "width": 4, "height": 4}, null]}
    ]
  },
  "storyboard": {"sequences": []}
}`

func TestDecode_MigratesLegacyCards(t *testing.T) {
	p, err := Decode([]byte(legacyProject))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := []ConceptSlot{
		{Image: &ImageData{ID: "i1", DataURL: "data:image/jpeg;base64,AA==", Width: 10, Height: 5}},
		{Image: &ImageData{ID: "i2", DataURL: "data:image/jpeg;base64,AQ==", Width: 20, Height: 10}},
	}
	if diff := cmp.Diff(want, p.ConceptArt.Characters[0].Slots); diff != "" {
		t.Errorf("migrated slots (-want +got):\n%s", diff)
	}

	wantProp := []ConceptSlot{
		{Image: &ImageData{ID: "i3", DataURL: "data:image/jpeg;base64,Ag==", Width: 4, Height: 4}},
		{},
	}
	if diff := cmp.Diff(wantProp, p.ConceptArt.Props[0].Slots); diff != "" {
		t.Errorf("migrated slots with a null image (-want +got):\n%s", diff)
	}

	loc := p.ConceptArt.Locations[0]
	if len(loc.Slots) != 1 || loc.Slots[0].Description != "dusk" {
		t.Errorf("current-shape card changed: %+v", loc)
	}
}

func TestEncode_DropsLegacyFields(t *testing.T) {
	p, err := Decode([]byte(legacyProject))
	if err != nil {
		t.Fatal(err)
	}
	data, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"images"`) {
		t.Errorf("encoded project still has legacy images field: %s", data)
	}
}

func TestEncodeDecode_EmptyListsStayArrays(t *testing.T) {
	p := NewProject(0)
	p.ConceptArt.Props = nil
	p.Storyboard.Sequences[0].Scenes[0].Shots = nil

	data, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"props":[]`) || !strings.Contains(s, `"shots":[]`) {
		t.Errorf("nil lists not encoded as arrays: %s", s)
	}

	back, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.ConceptArt.Props == nil || back.Storyboard.Sequences[0].Scenes[0].Shots == nil {
		t.Error("decoded lists are nil")
	}
}

func TestParseImport(t *testing.T) {
	p := NewProject(0)
	p, _ = AddSequence(p)
	// scramble numbering the way a hand-edited file might
	p.Storyboard.Sequences[1].Order = 7
	p.Storyboard.Sequences[1].Scenes[0].Shots[0].CutNumber = "999-9"
	data, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ParseImport(data)
	if err != nil {
		t.Fatalf("ParseImport() error = %v", err)
	}
	checkInvariants(t, got)
	if got.Storyboard.Sequences[1].ID != p.Storyboard.Sequences[1].ID {
		t.Error("sequence ids not preserved")
	}
}

func TestParseImport_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"array", `[]`},
		{"no meta", `{"conceptArt":{"characters":[],"locations":[],"props":[]},"storyboard":{"sequences":[]}}`},
		{"name not string", `{"meta":{"name":1,"frameRate":24},"conceptArt":{"characters":[],"locations":[],"props":[]},"storyboard":{"sequences":[]}}`},
		{"frameRate not number", `{"meta":{"name":"x","frameRate":"24"},"conceptArt":{"characters":[],"locations":[],"props":[]},"storyboard":{"sequences":[]}}`},
		{"props missing", `{"meta":{"name":"x","frameRate":24},"conceptArt":{"characters":[],"locations":[]},"storyboard":{"sequences":[]}}`},
		{"sequences missing", `{"meta":{"name":"x","frameRate":24},"conceptArt":{"characters":[],"locations":[],"props":[]},"storyboard":{}}`},
		{"sequences not array", `{"meta":{"name":"x","frameRate":24},"conceptArt":{"characters":[],"locations":[],"props":[]},"storyboard":{"sequences":{}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseImport([]byte(tt.data))
			var ie *ImportError
			if !errors.As(err, &ie) {
				t.Fatalf("err = %v, want *ImportError", err)
			}
		})
	}
}

func TestParseImport_ClampsShotTimes(t *testing.T) {
	p := NewProject(0)
	p.Storyboard.Sequences[0].Scenes[0].Shots[0].Time = TimeCode{Seconds: -5, Frames: 99}
	data, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ParseImport(data)
	if err != nil {
		t.Fatalf("ParseImport() error = %v", err)
	}
	sc := got.Storyboard.Sequences[0].Scenes[0]
	if tc := sc.Shots[0].Time; tc != (TimeCode{Seconds: 0, Frames: 23}) {
		t.Errorf("time = %s, want 0+23", tc)
	}
	if d := sc.Duration(24); d != 23 {
		t.Errorf("Duration(24) = %d, want 23", d)
	}
}

func TestParseImport_FillsDefaults(t *testing.T) {
	data := `{"meta":{"name":"x","frameRate":0,"aspectRatio":"weird"},"conceptArt":{"characters":[],"locations":[],"props":[]},"storyboard":{"sequences":[]}}`
	p, err := ParseImport([]byte(data))
	if err != nil {
		t.Fatalf("ParseImport() error = %v", err)
	}
	if p.Meta.FrameRate != DefaultFrameRate || p.Meta.AspectRatio != DefaultAspectRatio {
		t.Errorf("meta = %+v", p.Meta)
	}
}
