package api

import (
	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// WorldView — краткие сведения о мире
type WorldView struct {
	ID         multiblock.WorldID `json:"id"`
	Loaded     bool               `json:"loaded"`
	Chunks     int                `json:"chunks"`
	Structures int                `json:"structures"`
}

// StructureView — структура для отображения
type StructureView struct {
	ID       uint64   `json:"id"`
	CellType string   `json:"cell_type"`
	Anchor   vec.Vec3 `json:"anchor"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Depth    int      `json:"depth"`
	Volume   int      `json:"volume"`
}

// ReferenceView — отсоединённый снимок ссылки ячейки на структуру
type ReferenceView struct {
	Position  vec.Vec3                   `json:"position"`
	IsMaster  bool                       `json:"is_master"`
	Volume    int                        `json:"volume"`
	Reference multiblock.ReferenceRecord `json:"reference"`
}

func structureView(s *multiblock.Structure) (StructureView, bool) {
	rng, err := s.Range()
	if err != nil {
		return StructureView{}, false
	}
	return StructureView{
		ID:       s.ID(),
		CellType: block.Name(s.CellType()),
		Anchor:   rng.Anchor,
		Width:    rng.Width,
		Height:   rng.Height,
		Depth:    rng.Depth,
		Volume:   rng.Volume(),
	}, true
}

func referenceView(pos vec.Vec3, ref *multiblock.DetachedReference) (ReferenceView, error) {
	rec, err := ref.Record()
	if err != nil {
		return ReferenceView{}, err
	}
	volume, err := ref.Volume()
	if err != nil {
		return ReferenceView{}, err
	}
	return ReferenceView{
		Position:  pos,
		IsMaster:  ref.IsMasterCell(),
		Volume:    volume,
		Reference: rec,
	}, nil
}
