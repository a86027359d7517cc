// Copyright 2025 Joseph Cumines
//
// Action dispatcher: resolved node + action name -> port call

package ax

import (
	"context"
)

// Dispatcher performs accessibility actions and attribute writes on resolved
// nodes, translating host errors into the shared taxonomy. It is a stateless
// pass-through; the only logic is the error mapping.
type Dispatcher struct {
	port TreeAccessPort
}

// NewDispatcher returns a dispatcher acting through port.
func NewDispatcher(port TreeAccessPort) *Dispatcher {
	return &Dispatcher{port: port}
}

// Perform executes action on the live node behind el's handle.
func (d *Dispatcher) Perform(ctx context.Context, el *Element, action string) error {
	if err := d.port.Perform(ctx, el.Handle, action); err != nil {
		return translateActionError(action, err)
	}
	return nil
}

// SetAttribute writes an attribute on the live node behind el's handle.
func (d *Dispatcher) SetAttribute(ctx context.Context, el *Element, name, value string) error {
	if err := d.port.SetAttribute(ctx, el.Handle, name, value); err != nil {
		return translateActionError("set "+name, err)
	}
	return nil
}
