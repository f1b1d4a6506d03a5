package raster

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DefaultASCIINoData is written for absent cells when no other value is given.
const DefaultASCIINoData = -9999

// MaxASCIICells bounds the grid a header may declare before any cell is read.
const MaxASCIICells = 1 << 26

// ReadASCIIGrid decodes an ESRI ASCII grid. The format carries no projection,
// so the CRS is supplied by the caller. Both corner (xllcorner) and centre
// (xllcenter) origins are accepted, as are square (cellsize) and rectangular
// (dx/dy) cells.
func ReadASCIIGrid(r io.Reader, crs string) (*Raster, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string
	for sc.Scan() {
		tok := sc.Text()
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			first = tok
			break
		}
		key := strings.ToLower(tok)
		if !sc.Scan() {
			return nil, fmt.Errorf("ascii grid: missing value for %s", key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("ascii grid: header %s: %w", key, err)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ascii grid: %w", err)
	}

	ncols, nrows := header["ncols"], header["nrows"]
	if ncols < 1 || nrows < 1 {
		return nil, fmt.Errorf("ascii grid: invalid dimensions %gx%g", ncols, nrows)
	}
	if ncols > MaxASCIICells || nrows > MaxASCIICells || ncols*nrows > MaxASCIICells {
		return nil, fmt.Errorf("ascii grid: %gx%g exceeds %d cells", ncols, nrows, MaxASCIICells)
	}
	cols, rows := int(ncols), int(nrows)
	dx, dy := header["cellsize"], header["cellsize"]
	if v, ok := header["dx"]; ok {
		dx = v
	}
	if v, ok := header["dy"]; ok {
		dy = v
	}
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("ascii grid: missing cell size")
	}

	var xll, yll float64
	switch {
	case hasKey(header, "xllcorner") && hasKey(header, "yllcorner"):
		xll, yll = header["xllcorner"], header["yllcorner"]
	case hasKey(header, "xllcenter") && hasKey(header, "yllcenter"):
		xll, yll = header["xllcenter"]-dx/2, header["yllcenter"]-dy/2
	default:
		return nil, fmt.Errorf("ascii grid: missing lower-left origin")
	}
	nodata := math.NaN()
	if v, ok := header["nodata_value"]; ok {
		nodata = v
	}

	g := NewGrid(cols, rows, xll, yll+float64(rows)*dy, dx, dy, crs)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("ascii grid: %w", err)
	}

	// Grow with the data actually present rather than the declared size.
	values := make([]float64, 0, min(g.Len(), 1<<16))
	if first != "" {
		v, _ := strconv.ParseFloat(first, 64)
		values = append(values, v)
	}
	for len(values) < g.Len() && sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("ascii grid: cell %d: %w", len(values), err)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ascii grid: %w", err)
	}
	if len(values) != g.Len() {
		return nil, fmt.Errorf("ascii grid: got %d cells, want %d", len(values), g.Len())
	}
	return FromValues(g, values, nodata)
}

// WriteASCIIGrid encodes r as an ESRI ASCII grid with absent cells written as
// nodata.
func WriteASCIIGrid(w io.Writer, r *Raster, nodata float64) error {
	g := r.grid
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "ncols %d\nnrows %d\n", g.Cols, g.Rows)
	yll := g.OriginY() - float64(g.Rows)*g.PixelHeight()
	fmt.Fprintf(bw, "xllcorner %s\nyllcorner %s\n", formatFloat(g.OriginX()), formatFloat(yll))
	if closeEnough(g.PixelWidth(), g.PixelHeight()) {
		fmt.Fprintf(bw, "cellsize %s\n", formatFloat(g.PixelWidth()))
	} else {
		fmt.Fprintf(bw, "dx %s\ndy %s\n", formatFloat(g.PixelWidth()), formatFloat(g.PixelHeight()))
	}
	fmt.Fprintf(bw, "NODATA_value %s\n", formatFloat(nodata))

	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			v, ok := r.At(col, row)
			if !ok {
				v = nodata
			}
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func hasKey(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
