package multiblock

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

// ReferenceRecord — сериализованная ссылка. Размеры структуры заполняются
// только для снимка (DetachedReference).
type ReferenceRecord struct {
	MasterPosition   vec.Vec3 `json:"master_position"`
	RelativePosition vec.Vec3 `json:"relative_position"`
	BaseCellTypeID   string   `json:"base_cell_type_id"`
	StructureWidth   int      `json:"structure_width,omitempty"`
	StructureHeight  int      `json:"structure_height,omitempty"`
	StructureDepth   int      `json:"structure_depth,omitempty"`
}

// Номера полей бинарного формата
const (
	fieldMaster   protowire.Number = 1
	fieldRelative protowire.Number = 2
	fieldCellType protowire.Number = 3
	fieldWidth    protowire.Number = 4
	fieldHeight   protowire.Number = 5
	fieldDepth    protowire.Number = 6

	fieldVecX protowire.Number = 1
	fieldVecY protowire.Number = 2
	fieldVecZ protowire.Number = 3
)

// MarshalBinary кодирует запись в компактный protobuf-совместимый формат
func (r ReferenceRecord) MarshalBinary() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldMaster, protowire.BytesType)
	b = protowire.AppendBytes(b, appendVec(nil, r.MasterPosition))
	b = protowire.AppendTag(b, fieldRelative, protowire.BytesType)
	b = protowire.AppendBytes(b, appendVec(nil, r.RelativePosition))
	b = protowire.AppendTag(b, fieldCellType, protowire.BytesType)
	b = protowire.AppendString(b, r.BaseCellTypeID)

	for _, f := range []struct {
		num protowire.Number
		val int
	}{
		{fieldWidth, r.StructureWidth},
		{fieldHeight, r.StructureHeight},
		{fieldDepth, r.StructureDepth},
	} {
		if f.val == 0 {
			continue
		}
		b = protowire.AppendTag(b, f.num, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(f.val)))
	}
	return b, nil
}

// UnmarshalBinary разбирает запись; неизвестные поля пропускаются
func (r *ReferenceRecord) UnmarshalBinary(data []byte) error {
	var rec ReferenceRecord
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("reference record tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case (num == fieldMaster || num == fieldRelative) && typ == protowire.BytesType:
			raw, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return fmt.Errorf("reference record field %d: %w", num, protowire.ParseError(m))
			}
			v, err := consumeVec(raw)
			if err != nil {
				return fmt.Errorf("reference record field %d: %w", num, err)
			}
			if num == fieldMaster {
				rec.MasterPosition = v
			} else {
				rec.RelativePosition = v
			}
			n = m
		case num == fieldCellType && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return fmt.Errorf("reference record cell type: %w", protowire.ParseError(m))
			}
			rec.BaseCellTypeID = s
			n = m
		case (num == fieldWidth || num == fieldHeight || num == fieldDepth) && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return fmt.Errorf("reference record field %d: %w", num, protowire.ParseError(m))
			}
			size := int(protowire.DecodeZigZag(v))
			switch num {
			case fieldWidth:
				rec.StructureWidth = size
			case fieldHeight:
				rec.StructureHeight = size
			default:
				rec.StructureDepth = size
			}
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("reference record field %d: %w", num, protowire.ParseError(n))
			}
		}
		data = data[n:]
	}

	*r = rec
	return nil
}

// UnmarshalReferenceRecord декодирует запись из бинарной формы
func UnmarshalReferenceRecord(data []byte) (ReferenceRecord, error) {
	var rec ReferenceRecord
	err := rec.UnmarshalBinary(data)
	return rec, err
}

func appendVec(b []byte, v vec.Vec3) []byte {
	for i, c := range [3]int{v.X, v.Y, v.Z} {
		if c == 0 {
			continue
		}
		b = protowire.AppendTag(b, protowire.Number(i+1), protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(c)))
	}
	return b
}

func consumeVec(data []byte) (vec.Vec3, error) {
	var v vec.Vec3
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return v, protowire.ParseError(n)
		}
		data = data[n:]

		if typ != protowire.VarintType || num < fieldVecX || num > fieldVecZ {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return v, protowire.ParseError(n)
			}
			data = data[n:]
			continue
		}

		raw, m := protowire.ConsumeVarint(data)
		if m < 0 {
			return v, protowire.ParseError(m)
		}
		c := int(protowire.DecodeZigZag(raw))
		switch num {
		case fieldVecX:
			v.X = c
		case fieldVecY:
			v.Y = c
		case fieldVecZ:
			v.Z = c
		}
		data = data[m:]
	}
	return v, nil
}
