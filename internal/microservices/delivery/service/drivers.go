package service

import (
	"sync"

	"github.com/nikolovlazar/tracing-demos/internal/config"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/domain/dao"
)

// DriverPool is the in-memory roster of drivers. Assigning a driver does
// not mark it busy, so one driver may carry many deliveries at once.
type DriverPool struct {
	mu      sync.RWMutex
	drivers []dao.Driver
}

func NewDriverPool(drivers []config.Driver) *DriverPool {
	p := &DriverPool{drivers: make([]dao.Driver, 0, len(drivers))}
	for _, d := range drivers {
		p.drivers = append(p.drivers, dao.Driver{ID: d.ID, Name: d.Name, Available: d.Available})
	}
	return p
}

// Assign returns the first available driver.
func (p *DriverPool) Assign() (dao.Driver, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, d := range p.drivers {
		if d.Available {
			return d, true
		}
	}
	return dao.Driver{}, false
}

// SetAvailable toggles a driver and reports whether the id is known.
func (p *DriverPool) SetAvailable(id string, available bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.drivers {
		if p.drivers[i].ID == id {
			p.drivers[i].Available = available
			return true
		}
	}
	return false
}

func (p *DriverPool) List() []dao.Driver {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]dao.Driver(nil), p.drivers...)
}
