package gridref

import "sync"

// ceilDiv returns ceil(a/b) for positive b.
func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// placement is the cell span a single PlaceImage call covered, tracked so
// RemovePlacements/ClearPlacements can find and blank every cell it touched.
type placement struct {
	id       uint32
	imageID  uint32
	row, col int
	rows     int
	cols     int
}

// Grid is a minimal rows x cols character grid that satisfies
// vtgfx.GridMutator: it tracks a cursor and records image placements as
// per-cell UV references, without any of the ANSI attribute handling a real
// terminal emulator's grid would carry.
type Grid struct {
	mu     sync.Mutex
	cols   int
	rows   int
	cells  [][]Cell
	cursor Cursor

	placements      map[uint32]*placement
	nextPlacementID uint32
}

// New returns a blank cols x rows grid with the cursor at the origin.
func New(cols, rows int) *Grid {
	g := &Grid{
		cols:            cols,
		rows:            rows,
		placements:      make(map[uint32]*placement),
		nextPlacementID: 1,
	}
	g.cells = make([][]Cell, rows)
	for r := range g.cells {
		row := make([]Cell, cols)
		for c := range row {
			row[c] = NewCell()
		}
		g.cells[r] = row
	}
	return g
}

// Cell returns the cell at (row, col), or the zero Cell if out of bounds.
func (g *Grid) Cell(row, col int) Cell {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return Cell{}
	}
	return g.cells[row][col]
}

// WriteRune places r at the cursor and advances it, wrapping to the next
// row when the current one is full. There is no scrollback: writing past
// the last row overwrites it in place.
func (g *Grid) WriteRune(r rune) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cursor.Col >= g.cols {
		g.cursor.Col = 0
		g.cursor.Row++
	}
	if g.cursor.Row >= g.rows {
		g.cursor.Row = g.rows - 1
	}
	g.cells[g.cursor.Row][g.cursor.Col].Char = r
	g.cursor.Col++
}

// MoveCursor sets the cursor position directly, clamped to the grid.
func (g *Grid) MoveCursor(row, col int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursor = Cursor{Row: row, Col: col}
	g.cursor.Clamp(g.cols, g.rows)
}

// CursorPosition implements vtgfx.GridMutator.
func (g *Grid) CursorPosition() (row, col int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cursor.Row, g.cursor.Col
}

// PlaceImage implements vtgfx.GridMutator: it covers the cell span the
// image's pixel size rounds up to, starting at the cursor, tagging each
// covered cell with the UV slice it renders.
func (g *Grid) PlaceImage(id uint32, widthPx, heightPx, cellW, cellH int, noCursorMove bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cols := ceilDiv(widthPx, cellW)
	rows := ceilDiv(heightPx, cellH)
	if cols == 0 {
		cols = 1
	}
	if rows == 0 {
		rows = 1
	}

	pid := g.nextPlacementID
	g.nextPlacementID++
	p := &placement{id: pid, imageID: id, row: g.cursor.Row, col: g.cursor.Col, rows: rows, cols: cols}
	g.placements[pid] = p

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			rr, cc := g.cursor.Row+r, g.cursor.Col+c
			if rr < 0 || rr >= g.rows || cc < 0 || cc >= g.cols {
				continue
			}
			g.cells[rr][cc].Image = &CellImage{
				PlacementID: pid,
				ImageID:     id,
				U0:          float32(c) / float32(cols),
				V0:          float32(r) / float32(rows),
				U1:          float32(c+1) / float32(cols),
				V1:          float32(r+1) / float32(rows),
			}
		}
	}

	if !noCursorMove {
		g.cursor.Row += rows
		g.cursor.Clamp(g.cols, g.rows)
	}
}

// RemovePlacements implements vtgfx.GridMutator.
func (g *Grid) RemovePlacements(id uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for pid, p := range g.placements {
		if p.imageID == id {
			g.clearPlacementLocked(p)
			delete(g.placements, pid)
		}
	}
}

// ClearPlacements implements vtgfx.GridMutator.
func (g *Grid) ClearPlacements() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.placements {
		g.clearPlacementLocked(p)
	}
	g.placements = make(map[uint32]*placement)
}

func (g *Grid) clearPlacementLocked(p *placement) {
	for r := 0; r < p.rows; r++ {
		for c := 0; c < p.cols; c++ {
			rr, cc := p.row+r, p.col+c
			if rr < 0 || rr >= g.rows || cc < 0 || cc >= g.cols {
				continue
			}
			if cell := &g.cells[rr][cc]; cell.Image != nil && cell.Image.PlacementID == p.id {
				cell.Image = nil
			}
		}
	}
}
