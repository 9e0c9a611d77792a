package render

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"

	wallv1alpha1 "github.com/flatironinstitute/viswall-prom/api/v1alpha1"
	"github.com/flatironinstitute/viswall-prom/internal/chart"
)

// Footer is the strip drawn below the panel grid
type Footer struct {
	Hidden    bool
	Author    string
	Timestamp string
}

// Grid computes panel cells: rows of equal height, columns weighted by
// LayoutSpec.ColumnWeights, the footer strip at the bottom.
type Grid struct {
	layout       wallv1alpha1.LayoutSpec
	footerHeight int
	colEdges     []int
	rowHeight    int
}

// NewGrid validates layout and precomputes the column edges
func NewGrid(layout wallv1alpha1.LayoutSpec, footer Footer) (*Grid, error) {
	if layout.Width <= 0 || layout.Height <= 0 {
		return nil, errors.Newf("invalid canvas %dx%d", layout.Width, layout.Height)
	}
	if layout.Rows <= 0 || layout.Columns <= 0 {
		return nil, errors.Newf("invalid grid %dx%d", layout.Rows, layout.Columns)
	}

	g := &Grid{layout: layout}
	if !footer.Hidden {
		g.footerHeight = 13*textScale(layout.Height) + 8
	}
	g.rowHeight = (layout.Height - g.footerHeight) / layout.Rows
	if g.rowHeight <= 0 {
		return nil, errors.Newf("canvas height %d too small for %d rows", layout.Height, layout.Rows)
	}

	weights := make([]int, layout.Columns)
	total := 0
	for i := range weights {
		weights[i] = 1
		if i < len(layout.ColumnWeights) && layout.ColumnWeights[i] > 0 {
			weights[i] = layout.ColumnWeights[i]
		}
		total += weights[i]
	}
	g.colEdges = make([]int, layout.Columns+1)
	acc := 0
	for i, w := range weights {
		acc += w
		g.colEdges[i+1] = layout.Width * acc / total
	}
	return g, nil
}

// Cells is the number of panel positions
func (g *Grid) Cells() int {
	return g.layout.Rows * g.layout.Columns
}

// Cell returns the rectangle of panel i, row-major
func (g *Grid) Cell(i int) image.Rectangle {
	row, col := i/g.layout.Columns, i%g.layout.Columns
	return image.Rect(g.colEdges[col], row*g.rowHeight, g.colEdges[col+1], (row+1)*g.rowHeight)
}

// Compose rasterizes every panel into its cell. Panel i lands in cell i.
func Compose(layout wallv1alpha1.LayoutSpec, footer Footer, panels []*chart.DrawInstructions) (*image.RGBA, error) {
	grid, err := NewGrid(layout, footer)
	if err != nil {
		return nil, err
	}
	if len(panels) > grid.Cells() {
		return nil, errors.Newf("%d panels do not fit a %dx%d grid", len(panels), layout.Rows, layout.Columns)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, layout.Width, layout.Height))
	fill(canvas, canvas.Bounds(), white)

	for i, in := range panels {
		if in == nil {
			continue
		}
		cell := grid.Cell(i)
		img, err := Panel(in, cell.Dx(), cell.Dy())
		if err != nil {
			return nil, err
		}
		draw.Draw(canvas, cell, img, img.Bounds().Min, draw.Src)
	}

	if !footer.Hidden {
		line := footer.Author
		if footer.Timestamp != "" {
			if line != "" {
				line += "  |  "
			}
			line += "Last updated " + footer.Timestamp
		}
		top := layout.Height - grid.footerHeight + 4
		line = strings.ReplaceAll(line, "\n", " ")
		textBlock(canvas, []string{line}, layout.Width/2, top, textScale(layout.Height))
	}
	return canvas, nil
}

func loadLogo(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}

// scaleToHeight keeps the aspect ratio of b at the given height
func scaleToHeight(b image.Rectangle, height int) image.Rectangle {
	if b.Dy() == 0 || height <= 0 {
		return image.Rectangle{}
	}
	width := b.Dx() * height / b.Dy()
	return image.Rect(0, 0, width, height)
}
