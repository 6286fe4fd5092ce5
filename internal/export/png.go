/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	rasterx "golang.org/x/image/vector"

	"structsketch/internal/domain"
	"structsketch/internal/vector"
)

// supersample is the oversampling factor applied before downscaling.
const supersample = 2

// RenderImage rasterizes sc at its device size. Shapes are drawn oversampled
// and scaled down; text is drawn afterwards at native resolution.
func RenderImage(sc Scene) *image.RGBA {
	w, h := int(math.Ceil(sc.Width)), int(math.Ceil(sc.Height))
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	big := image.NewRGBA(image.Rect(0, 0, w*supersample, h*supersample))
	draw.Draw(big, big.Bounds(), image.NewUniform(toRGBA(sc.Background)), image.Point{}, draw.Src)

	up := vector.Scale(supersample, supersample)
	for _, it := range sc.Items {
		if it.Text != "" {
			continue
		}
		p := it.Path.Transform(up)
		parts, closed := p.Subpaths()
		if it.Fill != nil {
			for i, pts := range parts {
				if closed[i] || len(pts) > 2 {
					fillPolygon(big, pts, toRGBA(*it.Fill))
				}
			}
		}
		width := math.Max(it.Stroke.Width*supersample, 1)
		col := toRGBA(it.Stroke.Color)
		for i, pts := range parts {
			if closed[i] && len(pts) > 0 {
				pts = append(pts, pts[0])
			}
			for _, run := range dashRuns(pts, scaleDash(it.Stroke.Dash, supersample)) {
				strokePolyline(big, run, width, col)
			}
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(img, img.Bounds(), big, big.Bounds(), draw.Src, nil)

	for _, it := range sc.Items {
		if it.Text == "" {
			continue
		}
		d := &font.Drawer{Dst: img, Src: image.NewUniform(toRGBA(it.Stroke.Color)), Face: basicfont.Face7x13,
			Dot: fixed.P(int(math.Round(it.At.X)), int(math.Round(it.At.Y)))}
		d.DrawString(it.Text)
	}
	return img
}

// WritePNG encodes the rendered scene as PNG.
func WritePNG(w io.Writer, sc Scene) error {
	if err := png.Encode(w, RenderImage(sc)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ExportPNG builds the scene for snap and writes it to path.
func ExportPNG(path string, snap domain.Snapshot, opt Options) error {
	return writeFile(path, func(w io.Writer) error { return WritePNG(w, BuildScene(snap, opt)) })
}

// Thumbnail renders snap without labels or loads into a w×h PNG.
func Thumbnail(snap domain.Snapshot, w, h int) ([]byte, error) {
	var buf bytes.Buffer
	sc := BuildScene(snap, Options{Width: float64(w), Height: float64(h), Margin: float64(min(w, h)) / 12, HideLoads: true})
	if err := WritePNG(&buf, sc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toRGBA(c vector.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// fillPolygon rasterizes pts into dst. The rasterizer only spans the
// polygon's bounding box.
func fillPolygon(dst *image.RGBA, pts []vector.Pt, col color.RGBA) {
	if len(pts) < 3 {
		return
	}
	b := vector.BoundsOf(pts)
	r := image.Rect(int(math.Floor(b.X)), int(math.Floor(b.Y)), int(math.Ceil(b.X+b.W))+1, int(math.Ceil(b.Y+b.H))+1).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	z := rasterx.NewRasterizer(r.Dx(), r.Dy())
	ox, oy := float32(r.Min.X), float32(r.Min.Y)
	z.MoveTo(float32(pts[0].X)-ox, float32(pts[0].Y)-oy)
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X)-ox, float32(p.Y)-oy)
	}
	z.ClosePath()
	z.Draw(dst, r, image.NewUniform(col), image.Point{})
}

// strokePolyline draws each segment as a quad and each vertex as a disc so
// joins stay closed.
func strokePolyline(dst *image.RGBA, pts []vector.Pt, width float64, col color.RGBA) {
	hw := width / 2
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		d := b.Sub(a)
		l := d.Len()
		if l == 0 {
			continue
		}
		n := vector.Pt{X: -d.Y / l * hw, Y: d.X / l * hw}
		fillPolygon(dst, []vector.Pt{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)}, col)
	}
	if width < 3 {
		return
	}
	for _, p := range pts {
		ring, _ := vector.Circle(p, hw, 12).Subpaths()
		fillPolygon(dst, ring[0], col)
	}
}

func scaleDash(dash []float64, s float64) []float64 {
	if len(dash) == 0 {
		return nil
	}
	out := make([]float64, len(dash))
	for i, d := range dash {
		out[i] = d * s
	}
	return out
}

// dashRuns splits a polyline into the visible runs of a dash pattern.
func dashRuns(pts []vector.Pt, dash []float64) [][]vector.Pt {
	if len(dash) == 0 || len(pts) < 2 {
		return [][]vector.Pt{pts}
	}
	var total float64
	for _, d := range dash {
		total += d
	}
	if total <= 0 {
		return [][]vector.Pt{pts}
	}
	var runs [][]vector.Pt
	var cur []vector.Pt
	idx, left, on := 0, dash[0], true
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		segLen := a.Dist(b)
		pos := 0.0
		for pos < segLen {
			step := math.Min(left, segLen-pos)
			p0 := vector.Lerp(a, b, pos/segLen)
			p1 := vector.Lerp(a, b, (pos+step)/segLen)
			if on {
				if len(cur) == 0 {
					cur = append(cur, p0)
				}
				cur = append(cur, p1)
			}
			pos += step
			left -= step
			if left <= 1e-9 {
				if on && len(cur) > 1 {
					runs = append(runs, cur)
				}
				cur = nil
				on = !on
				idx = (idx + 1) % len(dash)
				left = dash[idx]
			}
		}
	}
	if on && len(cur) > 1 {
		runs = append(runs, cur)
	}
	return runs
}
