package docload

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/Neumenon/jsonout/jsonout"
)

// ============================================================
// JSON
// ============================================================
//
// JSON input may hold several whitespace-separated documents (NDJSON).
// Numbers stay json.Number so integers of any size survive unchanged. End of
// input is only accepted between documents.

func (l *loader) loadJSON(data []byte) ([]any, error) {
	iter := jsoniter.ConfigDefault.BorrowIterator(data)
	defer jsoniter.ConfigDefault.ReturnIterator(iter)

	var docs []any
	for {
		if iter.WhatIsNext() == jsoniter.InvalidValue {
			if iter.Error == io.EOF {
				return docs, nil
			}
			if iter.Error == nil {
				iter.ReportError("load", "unexpected character")
			}
			return nil, fmt.Errorf("json document %d: %w", len(docs), iter.Error)
		}

		v := l.readJSON(iter)
		if iter.Error != nil && iter.Error != io.EOF {
			return nil, fmt.Errorf("json document %d: %w", len(docs), iter.Error)
		}
		docs = append(docs, v)
	}
}

func (l *loader) readJSON(iter *jsoniter.Iterator) any {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		obj := jsonout.Alist{}
		ok := iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			obj = append(obj, jsonout.Cons(l.key(field), l.readJSON(it)))
			return it.Error == nil
		})
		if !ok {
			truncated(iter, "read object")
		}
		return obj

	case jsoniter.ArrayValue:
		arr := []any{}
		ok := iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			arr = append(arr, l.readJSON(it))
			return it.Error == nil
		})
		if !ok {
			truncated(iter, "read array")
		}
		return arr

	case jsoniter.StringValue:
		return iter.ReadString()

	case jsoniter.NumberValue:
		return iter.ReadNumber()

	case jsoniter.BoolValue:
		return iter.ReadBool()

	case jsoniter.NilValue:
		iter.ReadNil()
		return nil

	default:
		iter.ReportError("read value", "unexpected character")
		return nil
	}
}

// truncated turns an end of input inside an aggregate into an error.
func truncated(iter *jsoniter.Iterator, op string) {
	if iter.Error == nil || iter.Error == io.EOF {
		iter.ReportError(op, "unexpected end of input")
	}
}
