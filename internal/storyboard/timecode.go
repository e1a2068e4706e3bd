package storyboard

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimeCode is a shot duration expressed as whole seconds plus frames.
type TimeCode struct {
	Seconds int `json:"seconds"`
	Frames  int `json:"frames"`
}

func (tc TimeCode) String() string {
	return FormatTimeCode(tc)
}

// ParseTimeCode reads "S+F". Missing or unparsable parts become 0, seconds
// are clamped to >= 0 and frames to [0, frameRate-1]. Out-of-range input is
// normalized, never rejected.
func ParseTimeCode(input string, frameRate int) TimeCode {
	secPart, framePart, _ := strings.Cut(input, "+")
	return Normalize(TimeCode{
		Seconds: leadingInt(secPart),
		Frames:  leadingInt(framePart),
	}, frameRate)
}

func FormatTimeCode(tc TimeCode) string {
	return fmt.Sprintf("%d+%d", tc.Seconds, tc.Frames)
}

// MaxSeconds caps shot durations so frame arithmetic cannot overflow.
const MaxSeconds = math.MaxInt32

// Normalize clamps tc into the valid range for frameRate.
func Normalize(tc TimeCode, frameRate int) TimeCode {
	rate := EffectiveFrameRate(frameRate)
	if tc.Seconds < 0 {
		tc.Seconds = 0
	}
	if tc.Seconds > MaxSeconds {
		tc.Seconds = MaxSeconds
	}
	if tc.Frames < 0 {
		tc.Frames = 0
	}
	if tc.Frames > rate-1 {
		tc.Frames = rate - 1
	}
	return tc
}

func TimeCodeToFrames(tc TimeCode, frameRate int) int {
	return tc.Seconds*EffectiveFrameRate(frameRate) + tc.Frames
}

func FramesToTimeCode(totalFrames, frameRate int) TimeCode {
	if totalFrames < 0 {
		totalFrames = 0
	}
	rate := EffectiveFrameRate(frameRate)
	return TimeCode{Seconds: totalFrames / rate, Frames: totalFrames % rate}
}

// EffectiveFrameRate falls back to DefaultFrameRate for non-positive rates.
func EffectiveFrameRate(frameRate int) int {
	if frameRate <= 0 {
		return DefaultFrameRate
	}
	return frameRate
}

// leadingInt parses an optional sign followed by digits at the start of s,
// ignoring anything after them. No digits yields 0; values beyond the int
// range saturate at math.MaxInt or math.MinInt.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) {
		if s[0] == '-' {
			return math.MinInt
		}
		return math.MaxInt
	}
	if err != nil {
		return 0
	}
	return n
}
