package reader

import "sort"

// deviceRegistry maps device id to its record, with ordered iteration
// for the aggregate queries (global meta state, exported
// configuration) that must scan every registered device.
type deviceRegistry struct {
	devices map[int32]*Device
	order   []int32
}

func newDeviceRegistry() *deviceRegistry {
	return &deviceRegistry{devices: make(map[int32]*Device)}
}

func (r *deviceRegistry) get(id int32) *Device {
	return r.devices[id]
}

func (r *deviceRegistry) add(d *Device) {
	if _, exists := r.devices[d.ID]; !exists {
		r.order = append(r.order, d.ID)
	}
	r.devices[d.ID] = d
}

func (r *deviceRegistry) remove(id int32) {
	if _, exists := r.devices[id]; !exists {
		return
	}
	delete(r.devices, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// each calls fn for every registered device in insertion order.
func (r *deviceRegistry) each(fn func(*Device)) {
	for _, id := range r.order {
		fn(r.devices[id])
	}
}

// ids returns the registered device ids in ascending order, mainly for tests.
func (r *deviceRegistry) ids() []int32 {
	out := append([]int32(nil), r.order...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
