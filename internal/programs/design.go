package programs

import (
	"math"
	"strconv"
	"strings"
)

const (
	colorBlack = "#000000"
	colorWhite = "#FFFFFF"
)

// Grid is the seal layout rendered on a card face.
type Grid struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// SealGrid lays required seals out in rows of at most 5 columns for small
// cards and 6 columns once a card holds 10 or more seals.
func SealGrid(required int) Grid {
	if required <= 0 {
		return Grid{}
	}
	maxColumns := 5
	if required >= 10 {
		maxColumns = 6
	}
	columns := min(required, maxColumns)
	return Grid{
		Rows:    (required + columns - 1) / columns,
		Columns: columns,
	}
}

// ContrastTextColor picks black or white text for the given background,
// whichever has the higher WCAG contrast ratio. Unparseable input yields black.
func ContrastTextColor(background string) string {
	r, g, b, ok := parseHexColor(background)
	if !ok {
		return colorBlack
	}
	lum := 0.2126*linearize(r) + 0.7152*linearize(g) + 0.0722*linearize(b)
	againstBlack := (lum + 0.05) / 0.05
	againstWhite := 1.05 / (lum + 0.05)
	if againstWhite > againstBlack {
		return colorWhite
	}
	return colorBlack
}

func linearize(channel uint8) float64 {
	c := float64(channel) / 255
	if c <= 0.03928 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func parseHexColor(value string) (uint8, uint8, uint8, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(n >> 16), uint8(n >> 8), uint8(n), true
}
