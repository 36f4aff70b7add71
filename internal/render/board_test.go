package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-web/internal/rules"
	"github.com/park285/cheese-web/internal/session"
)

func decode(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func squareCorner(g geometry, sq rules.Square) image.Point {
	rect, _ := g.rect(sq)
	return rect.Min.Add(image.Pt(2, 2))
}

func TestRenderInitialBoard(t *testing.T) {
	st := session.New(session.Options{BoardTheme: "green"}).Snapshot()
	r := NewBoardRenderer(32)

	raw, err := r.RenderPNG(context.Background(), st)
	require.NoError(t, err)
	img := decode(t, raw)
	assert.Equal(t, 32*8+48, img.Bounds().Dx())

	g := geometry{size: 32, origin: image.Pt(24, 24)}
	theme := ThemeByName("green")
	pr, pg, pb, _ := img.At(squareCorner(g, "e4").X, squareCorner(g, "e4").Y).RGBA()
	lr, lg, lb, _ := theme.Light.RGBA()
	assert.Equal(t, [3]uint32{lr, lg, lb}, [3]uint32{pr, pg, pb}, "e4 is a light square")

	pr, pg, pb, _ = img.At(squareCorner(g, "d4").X, squareCorner(g, "d4").Y).RGBA()
	dr, dg, db, _ := theme.Dark.RGBA()
	assert.Equal(t, [3]uint32{dr, dg, db}, [3]uint32{pr, pg, pb}, "d4 is a dark square")
}

func TestRenderFlippedDiffers(t *testing.T) {
	s := session.New(session.Options{})
	s.AttemptMove("e2", "e4")
	r := NewBoardRenderer(24)

	normal, err := r.RenderPNG(context.Background(), s.Snapshot())
	require.NoError(t, err)
	s.FlipOrientation()
	flipped, err := r.RenderPNG(context.Background(), s.Snapshot())
	require.NoError(t, err)
	assert.NotEqual(t, normal, flipped)
}

func TestRenderHighlightsSelection(t *testing.T) {
	s := session.New(session.Options{})
	r := NewBoardRenderer(24)
	plain, err := r.RenderPNG(context.Background(), s.Snapshot())
	require.NoError(t, err)

	s.SelectSquare("g1")
	selected, err := r.RenderPNG(context.Background(), s.Snapshot())
	require.NoError(t, err)
	assert.NotEqual(t, plain, selected)
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBoardRenderer(0).RenderPNG(ctx, session.New(session.Options{}).Snapshot())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEveryThemeHasPalette(t *testing.T) {
	for _, name := range session.Themes {
		assert.True(t, HasTheme(name), name)
	}
	assert.Equal(t, themes["classic"], ThemeByName("unknown"))
}

func TestPieceImagesRasterize(t *testing.T) {
	for _, side := range []string{"w", "b"} {
		for _, kind := range []string{"p", "n", "b", "r", "q", "k"} {
			img, err := renderPieceImage(rules.PieceID(side+kind), 40)
			require.NoError(t, err)
			_, _, _, a := img.At(20, 34).RGBA()
			assert.NotZero(t, a, "%s%s has body pixels", side, kind)
		}
	}
	_, err := pieceSVG("wx")
	assert.Error(t, err)
}

func TestKingSquare(t *testing.T) {
	sq, ok := kingSquare(map[rules.Square]rules.PieceID{"e1": "wk", "e8": "bk"}, rules.Black)
	assert.True(t, ok)
	assert.Equal(t, rules.Square("e8"), sq)
}
