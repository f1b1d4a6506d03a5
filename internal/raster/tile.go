package raster

// Tile is a horizontal band of rows [RowStart, RowEnd).
type Tile struct {
	Index    int
	RowStart int
	RowEnd   int
}

// Tiles splits g into bands of at most rowsPerTile rows, top to bottom.
func Tiles(g Grid, rowsPerTile int) []Tile {
	if rowsPerTile <= 0 {
		rowsPerTile = g.Rows
	}
	var tiles []Tile
	for start := 0; start < g.Rows; start += rowsPerTile {
		tiles = append(tiles, Tile{
			Index:    len(tiles),
			RowStart: start,
			RowEnd:   min(start+rowsPerTile, g.Rows),
		})
	}
	return tiles
}
