package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ComponentStatus struct {
	Name      string    `json:"name"`
	Ready     bool      `json:"ready"`
	StartedAt time.Time `json:"started_at"`
	ReadyAt   time.Time `json:"ready_at,omitempty"`
}

type ReadinessStatus struct {
	Ready      bool              `json:"ready"`
	Components []ComponentStatus `json:"components"`
}

// ComponentManager manages component registration and readiness tracking.
type ComponentManager interface {
	// AddComponent registers a component and returns a function to mark it as ready.
	AddComponent(name string) func()
}

// ReadinessChecker provides readiness status information.
type ReadinessChecker interface {
	IsReady() bool
	GetStatus() ReadinessStatus
}

// ReadinessWaiter provides methods to wait for readiness events.
type ReadinessWaiter interface {
	// WaitReady blocks until all components are ready or the context is cancelled.
	WaitReady(ctx context.Context) error
}

type component struct {
	name      string
	ready     bool
	startedAt time.Time
	readyAt   time.Time
}

type readiness struct {
	mu         sync.RWMutex
	components map[string]*component
	readyChan  chan struct{}
	readyOnce  sync.Once
	log        *zap.Logger
}

func newReadiness(log *zap.Logger) *readiness {
	return &readiness{
		components: make(map[string]*component),
		readyChan:  make(chan struct{}),
		log:        log,
	}
}

func (r *readiness) AddComponent(name string) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; !exists {
		r.components[name] = &component{
			name:      name,
			startedAt: time.Now(),
		}
	}

	return func() { r.markReady(name) }
}

func (r *readiness) markReady(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comp, exists := r.components[name]
	if !exists || comp.ready {
		return
	}
	comp.ready = true
	comp.readyAt = time.Now()

	allReady := len(r.components) > 0
	for _, c := range r.components {
		if !c.ready {
			allReady = false
			break
		}
	}

	if allReady {
		r.readyOnce.Do(func() {
			close(r.readyChan)
			r.log.Info("all components are ready",
				zap.Int("component_count", len(r.components)),
			)
		})
	}
}

func (r *readiness) IsReady() bool {
	select {
	case <-r.readyChan:
		return true
	default:
		return false
	}
}

func (r *readiness) GetStatus() ReadinessStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := ReadinessStatus{
		Ready:      r.IsReady(),
		Components: make([]ComponentStatus, 0, len(r.components)),
	}

	for _, comp := range r.components {
		status.Components = append(status.Components, ComponentStatus{
			Name:      comp.name,
			Ready:     comp.ready,
			StartedAt: comp.startedAt,
			ReadyAt:   comp.readyAt,
		})
	}

	return status
}

func (r *readiness) WaitReady(ctx context.Context) error {
	select {
	case <-r.readyChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
