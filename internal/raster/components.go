package raster

import "fmt"

// Connectivity is the neighbourhood used for connected components.
type Connectivity int

const (
	Connect4 Connectivity = 4
	Connect8 Connectivity = 8
)

// ParseConnectivity validates a neighbourhood size.
func ParseConnectivity(n int) (Connectivity, error) {
	switch c := Connectivity(n); c {
	case Connect4, Connect8:
		return c, nil
	default:
		return 0, fmt.Errorf("connectivity must be 4 or 8, got %d", n)
	}
}

// Components is a connected-component labelling of a mask.
type Components struct {
	// Labels holds the component of each cell, -1 for cells outside the mask.
	Labels []int
	// Sizes holds the cell count of each component.
	Sizes []int
}

// LabelComponents labels the set cells of mask with a single union-find pass
// over the grid, so the cost is linear in the number of cells.
func LabelComponents(mask *Raster, conn Connectivity) Components {
	g := mask.grid
	n := g.Len()
	uf := newUnionFind(n)

	// Only already-visited neighbours are needed: W, NW, N, NE.
	back := []offset{{-1, 0}, {0, -1}}
	if conn == Connect8 {
		back = append(back, offset{-1, -1}, offset{1, -1})
	}

	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			i := g.Index(col, row)
			if !mask.IsSet(i) {
				continue
			}
			for _, o := range back {
				c, r := col+o.dc, row+o.dr
				if c < 0 || r < 0 || c >= g.Cols {
					continue
				}
				if j := g.Index(c, r); mask.IsSet(j) {
					uf.union(i, j)
				}
			}
		}
	}

	labels := make([]int, n)
	rootLabel := make(map[int]int)
	var sizes []int
	for i := 0; i < n; i++ {
		if !mask.IsSet(i) {
			labels[i] = -1
			continue
		}
		root := uf.find(i)
		label, ok := rootLabel[root]
		if !ok {
			label = len(sizes)
			rootLabel[root] = label
			sizes = append(sizes, 0)
		}
		labels[i] = label
		sizes[label]++
	}
	return Components{Labels: labels, Sizes: sizes}
}

// RemoveSmallComponents drops set cells whose component has fewer than
// minPixels cells. The kept cells retain their values.
func RemoveSmallComponents(mask *Raster, conn Connectivity, minPixels int) *Raster {
	cc := LabelComponents(mask, conn)
	out := New(mask.grid)
	for i, label := range cc.Labels {
		if label < 0 || cc.Sizes[label] < minPixels {
			continue
		}
		out.Set(i, mask.values[i])
	}
	return out
}

type unionFind struct {
	parent []int
	rank   []uint8
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]uint8, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}
