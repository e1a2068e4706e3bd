package storyboard

import "fmt"

// GenerateCutNumber builds the display label of a shot from its 0-based scene
// index within the sequence and 0-based shot index within the scene:
// scene 2, shot 0 -> "003-1".
func GenerateCutNumber(sceneIndex, shotIndex int) string {
	return fmt.Sprintf("%03d-%d", sceneIndex+1, shotIndex+1)
}

// RecalculateCutNumbers returns the labels for a scene holding shotCount shots.
func RecalculateCutNumbers(sceneIndex, shotCount int) []string {
	out := make([]string, shotCount)
	for i := range out {
		out[i] = GenerateCutNumber(sceneIndex, i)
	}
	return out
}
