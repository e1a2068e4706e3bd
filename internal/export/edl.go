package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

// EDL renders the storyboard as a CMX3600-style animatic edit list: one
// event per shot in tree order, each as long as the shot's time code.
// Shots with zero duration are left out.
func EDL(p storyboard.Project) string {
	fps := storyboard.EffectiveFrameRate(p.Meta.FrameRate)

	lines := []string{
		fmt.Sprintf("TITLE: %s", p.Meta.Name),
		"FCM: NON-DROP FRAME",
		"",
	}

	event := 0
	record := 0
	for _, seq := range p.Storyboard.Sequences {
		for _, sc := range seq.Scenes {
			for _, shot := range sc.Shots {
				dur := storyboard.TimeCodeToFrames(shot.Time, fps)
				if dur <= 0 {
					continue
				}
				event++
				lines = append(lines,
					fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", event, "AX", "V",
						framesToTimecode(0, fps), framesToTimecode(dur, fps),
						framesToTimecode(record, fps), framesToTimecode(record+dur, fps)),
					fmt.Sprintf("* FROM CLIP NAME:  %s %s > %s", shot.CutNumber, seq.Name, sc.Name),
				)
				if a := oneLine(shot.Action); a != "" {
					lines = append(lines, "* ACTION:  "+a)
				}
				if d := oneLine(shot.Dialogue); d != "" {
					lines = append(lines, "* DIALOGUE:  "+d)
				}
				record += dur
			}
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func writeEDL(w io.Writer, p storyboard.Project) error {
	_, err := io.WriteString(w, EDL(p))
	return err
}

func framesToTimecode(totalFrames, fps int) string {
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
