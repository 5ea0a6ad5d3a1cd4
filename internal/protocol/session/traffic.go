package session

import (
	"os"
	"sync"
)

const (
	trafficOutbound = "client sent >> session: "
	trafficInbound  = "counterparty sent >> client: "
)

// TrafficLog appends every raw message to a file, one per line. A nil
// TrafficLog discards.
type TrafficLog struct {
	mu sync.Mutex
	f  *os.File
}

func OpenTrafficLog(path string) (*TrafficLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &TrafficLog{f: f}, nil
}

func (t *TrafficLog) Outbound(raw []byte) error { return t.write(trafficOutbound, raw) }

func (t *TrafficLog) Inbound(raw []byte) error { return t.write(trafficInbound, raw) }

func (t *TrafficLog) write(prefix string, raw []byte) error {
	if t == nil {
		return nil
	}
	line := make([]byte, 0, len(prefix)+len(raw)+1)
	line = append(line, prefix...)
	line = append(line, raw...)
	line = append(line, '\n')
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.f.Write(line)
	return err
}

func (t *TrafficLog) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.f.Close()
}
