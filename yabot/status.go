package yabot

import (
	"strings"
	"sync"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
)

// StatusKind is the init outcome of one plugin.
type StatusKind string

const (
	StatusPending  StatusKind = "pending"
	StatusReady    StatusKind = "ready"
	StatusFailed   StatusKind = "failed"
	StatusTimedOut StatusKind = "timed_out"
)

// PluginStatus is a snapshot of one plugin's init outcome.
type PluginStatus struct {
	Name     string        `json:"name"`
	Status   StatusKind    `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`

	book *statusBook
}

type statusBook struct {
	mu       sync.RWMutex
	statuses []*PluginStatus
}

func newStatusBook() *statusBook {
	return &statusBook{}
}

func (s *statusBook) add(name string) *PluginStatus {
	status := &PluginStatus{Name: name, Status: StatusPending, book: s}

	s.mu.Lock()
	s.statuses = append(s.statuses, status)
	s.mu.Unlock()

	return status
}

func (s *statusBook) list() []PluginStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PluginStatus, 0, len(s.statuses))
	for _, status := range s.statuses {
		out = append(out, PluginStatus{
			Name:     status.Name,
			Status:   status.Status,
			Error:    status.Error,
			Duration: status.Duration,
		})
	}

	return out
}

func (p *PluginStatus) finish(kind StatusKind, err yaerrors.Error, took time.Duration) {
	p.book.mu.Lock()
	defer p.book.mu.Unlock()

	p.Status = kind
	p.Duration = took
	p.Error = ""

	if err != nil {
		p.Error, _, _ = strings.Cut(err.Error(), "\n")
	}
}
