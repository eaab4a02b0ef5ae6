package tui

import (
	"fmt"
	"strconv"
	"strings"
)

// Color helpers for the gradient separator trail and gradient text,
// used only by styles.go.

// parseHex splits a "#RRGGBB" string into its components. Anything
// malformed comes back as black.
func parseHex(hex string) (uint8, uint8, uint8) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}

// blendHex mixes two hex colors; t ranges from 0.0 (from) to 1.0 (to).
func blendHex(from, to string, t float64) string {
	r1, g1, b1 := parseHex(from)
	r2, g2, b2 := parseHex(to)
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + t*(float64(b)-float64(a)))
	}
	return fmt.Sprintf("#%02X%02X%02X", lerp(r1, r2), lerp(g1, g2), lerp(b1, b2))
}

// gradient produces n hex colors fading between two endpoints.
func gradient(from, to string, n int) []string {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []string{from}
	}
	out := make([]string, n)
	for i := range out {
		out[i] = blendHex(from, to, float64(i)/float64(n-1))
	}
	return out
}
