package log

import (
	"errors"
	"sync/atomic"
)

// ErrNotLogged is returned by Log() if no Handler was found to log an event.
var ErrNotLogged = errors.New("No handler found to log event")

// Indirection of Log() calls through a Handler which can be atomically swapped
type swapper struct {
	val atomic.Value
}

type valueStruct struct {
	Handler
}

func newSwapper() *swapper {
	s := new(swapper)
	s.val.Store(valueStruct{})
	return s
}

func (h *swapper) handler() Handler {
	v, _ := h.val.Load().(valueStruct)
	return v.Handler
}

// SwapHandler atomically replaces the handler, returning the old one.
func (h *swapper) SwapHandler(new Handler) Handler {
	old, _ := h.val.Swap(valueStruct{new}).(valueStruct)
	return old.Handler
}

// dispatch sends the event down the first Handler chain it finds walking
// from l towards the root of the name hierarchy. Only one Handler chain
// receives the event. A chain returning an error passes the event on to the
// next ancestor.
func dispatch(l *Logger, e *event) (err error) {
	err = ErrNotLogged
	for cur := l; cur != nil; cur = cur.parent {
		if h := cur.h.handler(); h != nil {
			if err = h.Log(Event{e}); err == nil {
				return nil
			}
		}
	}
	return err
}
