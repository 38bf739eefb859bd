// Package terrain turns a colour raster into a grid of terrain categories.
//
// Responsibilities: palette definition, nearest-centroid classification in
// normalised RGB space, and clamped lookups / sensing-window counts over
// the resulting grid.
// Key types: Category, Palette, Raster, Grid.
//
// The grid is immutable after Classify returns and is safe to share across
// goroutines.
package terrain
