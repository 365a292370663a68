package tuple

import (
	"bytes"
	"fmt"

	"storemy/pkg/types"
)

// Serialize encodes a tuple's fields into a flat byte slice, in schema
// order, for storage as a table page payload.
func (t *Tuple) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	for i := 0; i < t.TupleDesc.NumFields(); i++ {
		field, err := t.GetField(i)
		if err != nil {
			return nil, err
		}
		if field == nil {
			return nil, fmt.Errorf("field %d is unset, cannot serialize", i)
		}
		if err := field.Serialize(&buf); err != nil {
			return nil, fmt.Errorf("serialize field %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a table page payload back into a tuple matching td.
func Deserialize(td *TupleDescription, data []byte) (*Tuple, error) {
	r := bytes.NewReader(data)
	t := NewTuple(td)

	for i := 0; i < td.NumFields(); i++ {
		fieldType, err := td.TypeAtIndex(i)
		if err != nil {
			return nil, err
		}
		field, err := types.ParseField(r, fieldType)
		if err != nil {
			return nil, fmt.Errorf("parse field %d: %w", i, err)
		}
		if err := t.SetField(i, field); err != nil {
			return nil, err
		}
	}
	return t, nil
}
