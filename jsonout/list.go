package jsonout

import (
	"errors"
	"log/slog"
)

// ============================================================
// Ambiguous Lists
// ============================================================
//
// A List is tried as an array first. If a direct element is a dotted Pair,
// the array attempt is thrown away and the List is tried as a list of pairs.
// Both attempts are staged in scratch buffers; only the one that succeeds
// reaches the sink.

var (
	// errDottedPair is the only failure that sends a List to the pair
	// interpretation.
	errDottedPair = errors.New("list element is a dotted pair")
	errNotPair    = errors.New("list element is not a pair")
)

func (e *Encoder) encodeList(l List) error {
	arr, err := e.stage(func(c *Encoder) error { return c.listAsArray(l) })
	if err == nil {
		return e.commit("resolve list", arr)
	}
	if !errors.Is(err, errDottedPair) {
		return err
	}

	e.cfg.logger().Debug("list is not an array, retrying as pairs", slog.Int("len", len(l)))
	obj, err := e.stage(func(c *Encoder) error { return c.listAsObject(l) })
	switch {
	case err == nil:
		return e.commit("resolve list", obj)
	case errors.Is(err, errNotPair):
		return e.unencodable(l, "resolve list")
	default:
		return err
	}
}

func (e *Encoder) listAsArray(l List) error {
	return e.WithArray(func() error {
		for _, elem := range l {
			if p, ok := elem.(Pair); ok {
				if _, proper := p.tail(); !proper {
					return errDottedPair
				}
			}
			if err := e.EncodeArrayMember(elem); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Encoder) listAsObject(l List) error {
	return e.WithObject(func() error {
		for _, elem := range l {
			p, ok := elem.(Pair)
			if !ok {
				return errNotPair
			}
			if err := e.EncodeObjectMember(p.Key, p.Value); err != nil {
				return err
			}
		}
		return nil
	})
}
