// Package render draws the session board as a PNG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cheese-web/internal/rules"
	"github.com/park285/cheese-web/internal/session"
)

type BoardRenderer interface {
	RenderPNG(ctx context.Context, st session.State) ([]byte, error)
}

type pngBoardRenderer struct {
	squareSize int
	margin     int
}

// NewBoardRenderer returns a renderer drawing squareSize-pixel squares. Non-positive sizes use 64.
func NewBoardRenderer(squareSize int) BoardRenderer {
	if squareSize <= 0 {
		squareSize = 64
	}
	return &pngBoardRenderer{squareSize: squareSize, margin: 24}
}

func (r *pngBoardRenderer) RenderPNG(ctx context.Context, st session.State) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	theme := ThemeByName(st.BoardTheme)
	boardSize := r.squareSize * 8
	total := boardSize + r.margin*2
	origin := image.Point{X: r.margin, Y: r.margin}
	g := geometry{size: r.squareSize, origin: origin, flipped: st.Flipped}

	img := image.NewRGBA(image.Rect(0, 0, total, total))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(theme.Background), image.Point{}, imagedraw.Src)
	shadow := image.Rect(origin.X+4, origin.Y+6, origin.X+boardSize+6, origin.Y+boardSize+8)
	imagedraw.Draw(img, shadow, image.NewUniform(boardShadow), image.Point{}, imagedraw.Over)

	drawSquares(img, g, theme)
	if lm := st.LastMove; lm != nil {
		drawSquareOverlay(img, g, lm.From, lastMoveFill)
		drawSquareOverlay(img, g, lm.To, lastMoveFill)
	}
	if st.Selection.Selected != "" {
		drawSquareOverlay(img, g, st.Selection.Selected, selectedFill)
	}
	if st.InCheck {
		if sq, ok := kingSquare(st.Pieces, st.Turn); ok {
			drawSquareOverlay(img, g, sq, checkFill)
		}
	}
	if err := drawPieces(img, g, st.Pieces); err != nil {
		return nil, err
	}
	for _, sq := range st.Selection.Destinations {
		rect, ok := g.rect(sq)
		if !ok {
			continue
		}
		center := image.Pt(rect.Min.X+g.size/2, rect.Min.Y+g.size/2)
		drawDisc(img, center, g.size/7, targetDot)
	}
	drawCoordinates(img, g, theme.Coordinates)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// geometry maps squares to pixels for one orientation.
type geometry struct {
	size    int
	origin  image.Point
	flipped bool
}

func (g geometry) cell(file, rank int) image.Rectangle {
	col, row := file, 7-rank
	if g.flipped {
		col, row = 7-file, rank
	}
	x := g.origin.X + col*g.size
	y := g.origin.Y + row*g.size
	return image.Rect(x, y, x+g.size, y+g.size)
}

func (g geometry) rect(sq rules.Square) (image.Rectangle, bool) {
	if !rules.ValidSquare(sq) {
		return image.Rectangle{}, false
	}
	return g.cell(int(sq[0]-'a'), int(sq[1]-'1')), true
}

func drawSquares(dst *image.RGBA, g geometry, theme Theme) {
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			clr := theme.Light
			if (file+rank)%2 == 0 {
				clr = theme.Dark
			}
			imagedraw.Draw(dst, g.cell(file, rank), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst *image.RGBA, g geometry, pieces map[rules.Square]rules.PieceID) error {
	for sq, piece := range pieces {
		rect, ok := g.rect(sq)
		if !ok {
			continue
		}
		img, err := renderPieceImage(piece, g.size)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, rect, img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawSquareOverlay(dst *image.RGBA, g geometry, sq rules.Square, clr color.Color) {
	rect, ok := g.rect(sq)
	if !ok {
		return
	}
	imagedraw.Draw(dst, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawCoordinates(dst *image.RGBA, g geometry, clr color.Color) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(clr), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		fileRect := g.cell(i, 0)
		drawCenteredText(drawer, string(rune('a'+i)), fileRect.Min.X+g.size/2, g.origin.Y+8*g.size+ascent+4)
		rankRect := g.cell(0, i)
		drawCenteredText(drawer, string(rune('1'+i)), g.origin.X/2, rankRect.Min.Y+g.size/2+ascent/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func kingSquare(pieces map[rules.Square]rules.PieceID, side rules.Side) (rules.Square, bool) {
	want := rules.PieceID(string(side[:1]) + "k")
	for sq, p := range pieces {
		if p == want {
			return sq, true
		}
	}
	return "", false
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	if radius <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

// blendPixel composites clr over the pixel at x,y (source-over).
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 65535 - sa
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*0x101*inv/65535) >> 8),
		G: uint8((sg + uint32(dst.G)*0x101*inv/65535) >> 8),
		B: uint8((sb + uint32(dst.B)*0x101*inv/65535) >> 8),
		A: uint8((sa + uint32(dst.A)*0x101*inv/65535) >> 8),
	})
}
