package protocol

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
)

// OrderIDSource hands out client order ids of the form
// "<counter>-<HHMMSS.ffffff>". Safe for concurrent use.
type OrderIDSource struct {
	next atomic.Uint64
}

func NewOrderIDSource(start uint64) *OrderIDSource {
	s := &OrderIDSource{}
	s.next.Store(start)
	return s
}

var processOrderIDs = NewOrderIDSource(1)

// Next returns the next counter value.
func (s *OrderIDSource) Next() uint64 {
	return s.next.Add(1) - 1
}

// Peek returns the value Next would return.
func (s *OrderIDSource) Peek() uint64 {
	return s.next.Load()
}

// ClOrdID renders the next id stamped with now.
func (s *OrderIDSource) ClOrdID(now time.Time) []byte {
	return fmt.Appendf(nil, "%d-%s", s.Next(), tagvalue.OrderIDTime(now))
}
