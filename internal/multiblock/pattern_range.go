package multiblock

import (
	"fmt"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

// PatternRange — неизменяемое описание прямоугольной области:
// якорь (минимальный угол) и размеры по X/Y/Z.
type PatternRange struct {
	Anchor vec.Vec3 `json:"anchor"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Depth  int      `json:"depth"`
}

// NewPatternRange создаёт диапазон, отклоняя неположительные размеры
func NewPatternRange(anchor vec.Vec3, width, height, depth int) (PatternRange, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return PatternRange{}, fmt.Errorf("range %dx%dx%d at %s: %w", width, height, depth, anchor, ErrInvalidDimensions)
	}
	return PatternRange{Anchor: anchor, Width: width, Height: height, Depth: depth}, nil
}

// SingleCell возвращает диапазон 1x1x1
func SingleCell(pos vec.Vec3) PatternRange {
	return PatternRange{Anchor: pos, Width: 1, Height: 1, Depth: 1}
}

// RangeBetween строит диапазон по двум противоположным углам (включительно)
func RangeBetween(a, b vec.Vec3) PatternRange {
	lo, hi := a.Min(b), a.Max(b)
	return PatternRange{
		Anchor: lo,
		Width:  hi.X - lo.X + 1,
		Height: hi.Y - lo.Y + 1,
		Depth:  hi.Z - lo.Z + 1,
	}
}

// End возвращает максимальный угол (включительно)
func (r PatternRange) End() vec.Vec3 {
	return r.Anchor.Add(vec.Vec3{X: r.Width - 1, Y: r.Height - 1, Z: r.Depth - 1})
}

// Volume возвращает число ячеек
func (r PatternRange) Volume() int {
	return r.Width * r.Height * r.Depth
}

// Size возвращает размер по оси
func (r PatternRange) Size(axis vec.Axis) int {
	switch axis {
	case vec.AxisY:
		return r.Height
	case vec.AxisZ:
		return r.Depth
	default:
		return r.Width
	}
}

// WithSize возвращает копию с изменённым размером по оси
func (r PatternRange) WithSize(axis vec.Axis, size int) PatternRange {
	switch axis {
	case vec.AxisY:
		r.Height = size
	case vec.AxisZ:
		r.Depth = size
	default:
		r.Width = size
	}
	return r
}

// Valid сообщает, положительны ли все размеры
func (r PatternRange) Valid() bool {
	return r.Width > 0 && r.Height > 0 && r.Depth > 0
}

// Contains проверяет, лежит ли позиция внутри диапазона
func (r PatternRange) Contains(p vec.Vec3) bool {
	end := r.End()
	return p.X >= r.Anchor.X && p.X <= end.X &&
		p.Y >= r.Anchor.Y && p.Y <= end.Y &&
		p.Z >= r.Anchor.Z && p.Z <= end.Z
}

// ContainsRelative проверяет относительную позицию на [0,w)x[0,h)x[0,d)
func (r PatternRange) ContainsRelative(rel vec.Vec3) bool {
	return rel.X >= 0 && rel.X < r.Width &&
		rel.Y >= 0 && rel.Y < r.Height &&
		rel.Z >= 0 && rel.Z < r.Depth
}

// Intersects проверяет пересечение двух диапазонов
func (r PatternRange) Intersects(o PatternRange) bool {
	re, oe := r.End(), o.End()
	return r.Anchor.X <= oe.X && o.Anchor.X <= re.X &&
		r.Anchor.Y <= oe.Y && o.Anchor.Y <= re.Y &&
		r.Anchor.Z <= oe.Z && o.Anchor.Z <= re.Z
}

// Union возвращает ограничивающий параллелепипед двух диапазонов
func (r PatternRange) Union(o PatternRange) PatternRange {
	return RangeBetween(r.Anchor.Min(o.Anchor), r.End().Max(o.End()))
}

// Positions перечисляет все позиции диапазона в порядке X, затем Y, затем Z
func (r PatternRange) Positions() []vec.Vec3 {
	out := make([]vec.Vec3, 0, r.Volume())
	r.ForEach(func(p vec.Vec3) bool {
		out = append(out, p)
		return true
	})
	return out
}

// ForEach обходит позиции; fn возвращает false для остановки
func (r PatternRange) ForEach(fn func(p vec.Vec3) bool) {
	for z := 0; z < r.Depth; z++ {
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				if !fn(r.Anchor.Add(vec.Vec3{X: x, Y: y, Z: z})) {
					return
				}
			}
		}
	}
}

// BoundingBox возвращает минимальный диапазон, содержащий все точки
func BoundingBox(points []vec.Vec3) (PatternRange, bool) {
	if len(points) == 0 {
		return PatternRange{}, false
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return RangeBetween(lo, hi), true
}

func (r PatternRange) String() string {
	return fmt.Sprintf("%s+%dx%dx%d", r.Anchor, r.Width, r.Height, r.Depth)
}
