package domain

import "time"

// ResourceStatus is the lifecycle status of a resource.
type ResourceStatus string

const (
	ResourceAvailable ResourceStatus = "available"
	ResourceBusy      ResourceStatus = "busy"
	ResourceOffline   ResourceStatus = "offline"
)

// Valid reports whether the status is one of the known values.
func (s ResourceStatus) Valid() bool {
	switch s {
	case ResourceAvailable, ResourceBusy, ResourceOffline:
		return true
	}
	return false
}

// ResourceKind categorizes a resource.
type ResourceKind string

const (
	ResourceCompute  ResourceKind = "compute"
	ResourceStorage  ResourceKind = "storage"
	ResourceNetwork  ResourceKind = "network"
	ResourceDatabase ResourceKind = "database"
)

// Valid reports whether the kind is one of the known values.
func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceCompute, ResourceStorage, ResourceNetwork, ResourceDatabase:
		return true
	}
	return false
}

// Resource is a tracked entity with capacity and current load.
type Resource struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Kind      ResourceKind   `json:"type"`
	Capacity  float64        `json:"capacity"`
	Load      float64        `json:"currentLoad"`
	Status    ResourceStatus `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Utilization returns the raw Load/Capacity ratio. The second return is
// false when Capacity is zero — the ratio is undefined and callers must not
// render it, rather than propagating Inf or NaN.
func (r Resource) Utilization() (float64, bool) {
	if r.Capacity == 0 {
		return 0, false
	}
	return r.Load / r.Capacity, true
}

// DisplayUtilization returns the utilization clamped to [0, 1] for display.
// The stored ratio itself is never clamped. Undefined utilization displays
// as zero.
func (r Resource) DisplayUtilization() float64 {
	u, ok := r.Utilization()
	if !ok {
		return 0
	}
	if u < 0 {
		return 0
	}
	if u > 1 {
		return 1
	}
	return u
}
