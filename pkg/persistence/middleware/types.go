package middleware

import (
	"github.com/aretw0/funnel/pkg/ports"
)

// Middleware allows wrapping a LocalStore to add behavior.
type Middleware func(ports.LocalStore) ports.LocalStore

// SessionMiddleware allows wrapping a remote SessionStore to add behavior.
type SessionMiddleware func(ports.SessionStore) ports.SessionStore

// Devices applies mws to every device store handed out by ds. The first middleware is
// the outermost.
func Devices(ds ports.DeviceStore, mws ...Middleware) ports.DeviceStore {
	if len(mws) == 0 {
		return ds
	}
	return &deviceStore{DeviceStore: ds, mws: mws}
}

type deviceStore struct {
	ports.DeviceStore
	mws []Middleware
}

func (d *deviceStore) Device(id string) ports.LocalStore {
	store := d.DeviceStore.Device(id)
	for i := len(d.mws) - 1; i >= 0; i-- {
		store = d.mws[i](store)
	}
	return store
}
