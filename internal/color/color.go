// Package color converts between the "#rrggbb" form produced by colour
// pickers and the "r, g, b" triple stored on box records.
package color

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned for input outside the codec's domain.
var ErrMalformed = errors.New("malformed colour")

// HexToRGB converts "#ff0000" or "ff0000" to "255, 0, 0".
func HexToRGB(hex string) (string, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(clean) != 6 {
		return "", fmt.Errorf("hex %q: want 6 digits: %w", hex, ErrMalformed)
	}
	var ch [3]uint64
	for i := range ch {
		v, err := strconv.ParseUint(clean[i*2:i*2+2], 16, 8)
		if err != nil {
			return "", fmt.Errorf("hex %q: %w", hex, ErrMalformed)
		}
		ch[i] = v
	}
	return fmt.Sprintf("%d, %d, %d", ch[0], ch[1], ch[2]), nil
}

// RGBToHex converts "255, 0, 0" to "#ff0000".
func RGBToHex(rgb string) (string, error) {
	ch, err := parseTriple(rgb)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("#%02x%02x%02x", ch[0], ch[1], ch[2]), nil
}

// Swatch returns the CSS background value for a stored triple.
func Swatch(rgb string) string {
	ch, err := parseTriple(rgb)
	if err != nil {
		return "transparent"
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", ch[0], ch[1], ch[2])
}

func parseTriple(rgb string) ([3]int, error) {
	var ch [3]int
	parts := strings.Split(rgb, ",")
	if len(parts) != 3 {
		return ch, fmt.Errorf("rgb %q: want 3 channels: %w", rgb, ErrMalformed)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return ch, fmt.Errorf("rgb %q: channel %d out of range: %w", rgb, i+1, ErrMalformed)
		}
		ch[i] = v
	}
	return ch, nil
}
