// Package transform prepares columns for modelling: categorical encoding,
// scaling and the Box-Cox power transform.
package transform

import (
	"fmt"
	"sort"
)

// LabelEncoding maps categorical levels to consecutive float codes, levels
// sorted for determinism.
type LabelEncoding struct {
	Levels []string
	codes  map[string]float64
}

// LabelEncode builds an encoding from observed labels and returns the encoded
// column. Missing labels ("") are rejected; impute first.
func LabelEncode(labels []string) ([]float64, *LabelEncoding, error) {
	seen := make(map[string]bool)
	for i, v := range labels {
		if v == "" {
			return nil, nil, fmt.Errorf("label encode: missing value at row %d", i)
		}
		seen[v] = true
	}

	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)

	enc := &LabelEncoding{Levels: levels, codes: make(map[string]float64, len(levels))}
	for i, v := range levels {
		enc.codes[v] = float64(i)
	}

	out := make([]float64, len(labels))
	for i, v := range labels {
		out[i] = enc.codes[v]
	}
	return out, enc, nil
}

// Code returns the code for a level.
func (e *LabelEncoding) Code(level string) (float64, error) {
	c, ok := e.codes[level]
	if !ok {
		return 0, fmt.Errorf("label encode: unknown level %q", level)
	}
	return c, nil
}

// OneHot expands a categorical column into indicator columns, one per level
// except the first (sorted) level, which is the reference. Column names are
// "<name>_<level>".
func OneHot(name string, labels []string) ([]string, [][]float64, error) {
	_, enc, err := LabelEncode(labels)
	if err != nil {
		return nil, nil, fmt.Errorf("one-hot %q: %w", name, err)
	}
	if len(enc.Levels) < 2 {
		return nil, nil, fmt.Errorf("one-hot %q: only %d level(s)", name, len(enc.Levels))
	}

	kept := enc.Levels[1:]
	names := make([]string, len(kept))
	cols := make([][]float64, len(kept))
	for j, level := range kept {
		names[j] = fmt.Sprintf("%s_%s", name, level)
		col := make([]float64, len(labels))
		for i, v := range labels {
			if v == level {
				col[i] = 1
			}
		}
		cols[j] = col
	}
	return names, cols, nil
}
