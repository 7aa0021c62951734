// Package alert holds price alerts and detects when the replay crosses them.
package alert

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrInvalidPrice = errors.New("alert price must be positive")
	ErrNotFound     = errors.New("alert not found")
)

// Alert is a one-shot price trigger. Active goes false the tick it fires
// and never comes back.
type Alert struct {
	ID     int     `json:"id"`
	Price  float64 `json:"price"`
	Active bool    `json:"active"`
}

// Crossed reports whether a move from prev to next crosses trigger, in
// either direction. Touching the trigger on the far side counts.
func Crossed(prev, next, trigger float64) bool {
	return (prev < trigger && trigger <= next) ||
		(prev > trigger && trigger >= next)
}

// Monitor owns the alert set.
type Monitor struct {
	mu     sync.Mutex
	nextID int
	alerts map[int]*Alert
}

func NewMonitor() *Monitor {
	return &Monitor{
		nextID: 1,
		alerts: make(map[int]*Alert),
	}
}

// Add registers an active alert at price.
func (m *Monitor) Add(price float64) (Alert, error) {
	if !(price > 0) {
		return Alert{}, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	a := &Alert{ID: m.nextID, Price: price, Active: true}
	m.nextID++
	m.alerts[a.ID] = a
	return *a, nil
}

// Remove deletes an alert, fired or not.
func (m *Monitor) Remove(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.alerts[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	delete(m.alerts, id)
	return nil
}

// List returns every alert ordered by ID.
func (m *Monitor) List() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Evaluate fires every active alert crossed between the previous and next
// close and returns them in ID order.
func (m *Monitor) Evaluate(prevClose, nextClose float64) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fired []Alert
	for _, a := range m.alerts {
		if !a.Active || !Crossed(prevClose, nextClose, a.Price) {
			continue
		}
		a.Active = false
		fired = append(fired, *a)
	}
	sort.Slice(fired, func(i, j int) bool { return fired[i].ID < fired[j].ID })
	return fired
}

// Reset drops all alerts. IDs keep counting up.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = make(map[int]*Alert)
}
