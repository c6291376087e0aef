package model

import (
	"sort"
	"strings"
)

// Region is one bounding-boxed text fragment from recognition.
type Region struct {
	Text   string  `json:"text" yaml:"text"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// RecognizedText is the output of the recognition step.
type RecognizedText struct {
	Lines   []string `json:"lines,omitempty" yaml:"lines,omitempty"`
	Regions []Region `json:"regions,omitempty" yaml:"regions,omitempty"`
}

// TextFromString splits a text blob into lines.
func TextFromString(s string) RecognizedText {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return RecognizedText{Lines: strings.Split(s, "\n")}
}

// OrderedLines returns the text as lines. Explicit lines win; otherwise
// regions are grouped into rows top-to-bottom and joined left-to-right.
// Two regions share a row when their vertical centers are closer than half
// the shorter region's height.
func (rt RecognizedText) OrderedLines() []string {
	if len(rt.Lines) > 0 {
		return rt.Lines
	}
	if len(rt.Regions) == 0 {
		return nil
	}

	regions := make([]Region, len(rt.Regions))
	copy(regions, rt.Regions)
	sort.SliceStable(regions, func(i, j int) bool {
		return center(regions[i]) < center(regions[j])
	})

	var rows [][]Region
	for _, r := range regions {
		if n := len(rows); n > 0 && sameRow(rows[n-1][0], r) {
			rows[n-1] = append(rows[n-1], r)
			continue
		}
		rows = append(rows, []Region{r})
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		parts := make([]string, 0, len(row))
		for _, r := range row {
			if t := strings.TrimSpace(r.Text); t != "" {
				parts = append(parts, t)
			}
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return lines
}

func center(r Region) float64 { return r.Y + r.Height/2 }

func sameRow(a, b Region) bool {
	tol := a.Height
	if b.Height < tol {
		tol = b.Height
	}
	tol /= 2
	d := center(a) - center(b)
	if d < 0 {
		d = -d
	}
	return d <= tol
}
