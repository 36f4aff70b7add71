package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/cheese-web/internal/rules"
)

// Piece outlines on a 45x45 canvas. %[1]s is the fill attribute block.
var pieceShapes = map[string][]string{
	"p": {
		`<circle cx="22.5" cy="14" r="6" %[1]s/>`,
		`<path d="M16 35 L29 35 L26.5 21 L18.5 21 Z" %[1]s/>`,
	},
	"r": {
		`<path d="M13 35 L32 35 L30.5 16 L14.5 16 Z" %[1]s/>`,
		`<path d="M11 9 L15 9 L15 12 L19.5 12 L19.5 9 L25.5 9 L25.5 12 L30 12 L30 9 L34 9 L34 16.5 L11 16.5 Z" %[1]s/>`,
	},
	"n": {
		`<path d="M14 35 L32 35 L31 21 C30.5 13 25 8.5 18.5 9 L12 16.5 L13.5 20.5 L19.5 19 L15 29 Z" %[1]s/>`,
		`<circle cx="20" cy="14" r="1.5" %[1]s/>`,
	},
	"b": {
		`<ellipse cx="22.5" cy="21" rx="7" ry="10" %[1]s/>`,
		`<circle cx="22.5" cy="8.5" r="3" %[1]s/>`,
		`<path d="M16 35 L29 35 L27 29 L18 29 Z" %[1]s/>`,
	},
	"q": {
		`<path d="M9 13 L14 30 L31 30 L36 13 L29.5 23 L27 9 L22.5 23 L18 9 L15.5 23 Z" %[1]s/>`,
		`<path d="M13 35 L32 35 L31 30 L14 30 Z" %[1]s/>`,
		`<circle cx="22.5" cy="7.5" r="2.5" %[1]s/>`,
	},
	"k": {
		`<path d="M21 4 L24 4 L24 7.5 L27.5 7.5 L27.5 10.5 L24 10.5 L24 15 L21 15 L21 10.5 L17.5 10.5 L17.5 7.5 L21 7.5 Z" %[1]s/>`,
		`<path d="M12 33 L33 33 L35.5 21 C32 14 13 14 9.5 21 Z" %[1]s/>`,
	},
}

const pieceBase = `<rect x="10" y="35" width="25" height="4.5" %[1]s/>`

// pieceSVG builds the SVG document for id.
func pieceSVG(id rules.PieceID) ([]byte, error) {
	shapes, ok := pieceShapes[id.Kind()]
	if !ok {
		return nil, fmt.Errorf("unknown piece %q", string(id))
	}
	fill, stroke := "#f8f8f8", "#1a1a1a"
	if id.Side() == rules.Black {
		fill, stroke = "#1f1f1f", "#e8e8e8"
	}
	attrs := fmt.Sprintf(`fill="%s" stroke="%s" stroke-width="1.5"`, fill, stroke)

	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	for _, s := range shapes {
		b.WriteString(fmt.Sprintf(s, attrs))
	}
	b.WriteString(fmt.Sprintf(pieceBase, attrs))
	b.WriteString(`</svg>`)
	return []byte(b.String()), nil
}

type pieceCacheKey struct {
	piece rules.PieceID
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece rules.PieceID, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", piece, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
