package storyboard

import (
	"encoding/json"
)

// ValidateImport checks the shape of an exported project file without
// decoding it into a Project.
func ValidateImport(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return &ImportError{Reason: "not a JSON object", Err: err}
	}

	meta, ok := doc["meta"].(map[string]any)
	if !ok {
		return &ImportError{Reason: "missing meta"}
	}
	if _, ok := meta["name"].(string); !ok {
		return &ImportError{Reason: "meta.name must be a string"}
	}
	if _, ok := meta["frameRate"].(float64); !ok {
		return &ImportError{Reason: "meta.frameRate must be a number"}
	}

	art, ok := doc["conceptArt"].(map[string]any)
	if !ok {
		return &ImportError{Reason: "missing conceptArt"}
	}
	for _, c := range ConceptCategories {
		if _, ok := art[string(c)].([]any); !ok {
			return &ImportError{Reason: "conceptArt." + string(c) + " must be an array"}
		}
	}

	board, ok := doc["storyboard"].(map[string]any)
	if !ok {
		return &ImportError{Reason: "missing storyboard"}
	}
	if _, ok := board["sequences"].([]any); !ok {
		return &ImportError{Reason: "storyboard.sequences must be an array"}
	}
	return nil
}

// ParseImport validates and decodes an exported project file. The result is
// renumbered so order fields and cut numbers match tree position.
func ParseImport(data []byte) (Project, error) {
	if err := ValidateImport(data); err != nil {
		return Project{}, err
	}
	p, err := Decode(data)
	if err != nil {
		return Project{}, &ImportError{Reason: "malformed project", Err: err}
	}
	if p.Meta.FrameRate <= 0 {
		p.Meta.FrameRate = DefaultFrameRate
	}
	if r, err := NormalizeAspectRatio(p.Meta.AspectRatio); err == nil {
		p.Meta.AspectRatio = r
	} else {
		p.Meta.AspectRatio = DefaultAspectRatio
	}
	return Renumber(p), nil
}
