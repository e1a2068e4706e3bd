package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

// JSON renders the full project with two-space indentation. The output is
// accepted by storyboard.ParseImport.
func JSON(p storyboard.Project) ([]byte, error) {
	compact, err := storyboard.Encode(p)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent project: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeJSON(w io.Writer, p storyboard.Project) error {
	data, err := JSON(p)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
