package control

import (
	"sync"

	"github.com/san-kum/bodysim/internal/dynamo"
)

// Manual passes efforts set from any goroutine to the joints. With a positive
// Duration it reports itself done once that much simulated time has passed.
type Manual struct {
	Duration float64

	mu    sync.Mutex
	set   []float64
	port  jointPort
	start float64
	begun bool
}

func NewManual(duration float64) *Manual {
	return &Manual{Duration: duration}
}

func (m *Manual) Name() string { return "manual" }

// SetControl updates the efforts applied from the next step on.
func (m *Manual) SetControl(u []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set = append(m.set[:0], u...)
}

func (m *Manual) Initialize(io IO) bool {
	m.port.attach(io)
	m.begun = false
	return true
}

func (m *Manual) Input() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.port.u {
		m.port.u[i] = 0
		if i < len(m.set) {
			m.port.u[i] = m.set[i]
		}
	}
}

func (m *Manual) Control() error {
	now := m.port.io.CurrentTime()
	if !m.begun {
		m.start = now
		m.begun = true
	}
	if m.Duration > 0 && now-m.start >= m.Duration {
		for i := range m.port.u {
			m.port.u[i] = 0
		}
		return dynamo.ErrControllerDone
	}
	return nil
}

func (m *Manual) Output() { m.port.output() }

func (m *Manual) Stop() {}
