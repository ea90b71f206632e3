package guard

import (
	"context"
	"fmt"

	"github.com/ppiankov/safeupdate/internal/model"
)

// Callback receives the outcome of a callback-style update.
type Callback func(updated int64, err error)

// Collection is a guarded update surface for one named collection.
type Collection struct {
	name  string
	guard *Guard
	next  Updater
}

// Name returns the collection name used for policy exemption.
func (c *Collection) Name() string {
	return c.name
}

// Pending is the outcome of an asynchronous update.
type Pending struct {
	done    chan struct{}
	updated int64
	err     error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(updated int64, err error) {
	p.updated = updated
	p.err = err
	close(p.done)
}

// Done is closed once the outcome is available.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the outcome is available and returns it.
func (p *Pending) Wait() (int64, error) {
	<-p.done
	return p.updated, p.err
}

// UpdateAsync runs the safety checks on the calling goroutine and, when they
// pass, forwards the unchanged arguments to the store on a new goroutine.
// A rejection comes back as an already-resolved Pending.
func (c *Collection) UpdateAsync(ctx context.Context, selector, modifier model.Document, opts model.UpdateOptions) *Pending {
	req := model.UpdateRequest{Collection: c.name, Selector: selector, Modifier: modifier, Options: opts}
	if err := c.guard.admit(ctx, req); err != nil {
		p := newPending()
		p.resolve(0, err)
		return p
	}
	return c.forward(ctx, selector, modifier, opts)
}

// forward calls the store on a new goroutine. A store panic resolves as an error.
func (c *Collection) forward(ctx context.Context, selector, modifier model.Document, opts model.UpdateOptions) *Pending {
	p := newPending()
	go func() {
		var (
			updated int64
			err     error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("safeupdate: store panicked on %s: %v", c.name, r)
			}
			p.resolve(updated, err)
		}()
		updated, err = c.next.Update(ctx, selector, modifier, opts)
	}()
	return p
}

// Update is the blocking form of UpdateAsync.
func (c *Collection) Update(ctx context.Context, selector, modifier model.Document, opts model.UpdateOptions) (int64, error) {
	return c.UpdateAsync(ctx, selector, modifier, opts).Wait()
}

// UpdateCallback delivers the outcome, rejections included, to cb instead of
// returning it. A rejection invokes cb before UpdateCallback returns; an
// approved update invokes it on the store goroutine, never the caller's. The
// returned Pending resolves after cb has run. A nil cb is allowed.
func (c *Collection) UpdateCallback(ctx context.Context, selector, modifier model.Document, opts model.UpdateOptions, cb Callback) *Pending {
	if cb == nil {
		return c.UpdateAsync(ctx, selector, modifier, opts)
	}

	p := newPending()
	req := model.UpdateRequest{Collection: c.name, Selector: selector, Modifier: modifier, Options: opts}
	if err := c.guard.admit(ctx, req); err != nil {
		cb(0, err)
		p.resolve(0, err)
		return p
	}

	inner := c.forward(ctx, selector, modifier, opts)
	go func() {
		updated, err := inner.Wait()
		cb(updated, err)
		p.resolve(updated, err)
	}()
	return p
}

// Call accepts the loose trailing arguments of a host dispatch layer:
//
//	Call(ctx, sel, mod)
//	Call(ctx, sel, mod, opts)
//	Call(ctx, sel, mod, opts, cb)
//	Call(ctx, sel, mod, cb)        // cb in the options slot; options default to empty
//
// opts may be model.UpdateOptions, *model.UpdateOptions, map[string]any or nil.
// With a callback, the outcome goes to cb and Call returns (updated, nil) once
// cb has run; without one, the outcome is returned.
func (c *Collection) Call(ctx context.Context, selector, modifier model.Document, rest ...any) (int64, error) {
	opts, cb, err := splitArgs(rest)
	if err != nil {
		return 0, err
	}
	if cb == nil {
		return c.Update(ctx, selector, modifier, opts)
	}
	updated, _ := c.UpdateCallback(ctx, selector, modifier, opts, cb).Wait()
	return updated, nil
}

func splitArgs(rest []any) (model.UpdateOptions, Callback, error) {
	var opts model.UpdateOptions
	if len(rest) > 2 {
		return opts, nil, fmt.Errorf("safeupdate: too many arguments (%d)", len(rest))
	}
	if len(rest) == 0 {
		return opts, nil, nil
	}

	// A callback in the options slot stands for (empty options, callback).
	if cb, ok := asCallback(rest[0]); ok {
		if len(rest) > 1 {
			return opts, nil, fmt.Errorf("safeupdate: unexpected argument %T after callback", rest[1])
		}
		return opts, cb, nil
	}

	switch v := rest[0].(type) {
	case nil:
	case model.UpdateOptions:
		opts = v
	case *model.UpdateOptions:
		if v != nil {
			opts = *v
		}
	case map[string]any:
		parsed, err := model.OptionsFromMap(v)
		if err != nil {
			return opts, nil, fmt.Errorf("safeupdate: %w", err)
		}
		opts = parsed
	default:
		return opts, nil, fmt.Errorf("safeupdate: unsupported options type %T", rest[0])
	}

	if len(rest) == 1 || rest[1] == nil {
		return opts, nil, nil
	}
	cb, ok := asCallback(rest[1])
	if !ok {
		return opts, nil, fmt.Errorf("safeupdate: unsupported callback type %T", rest[1])
	}
	return opts, cb, nil
}

func asCallback(v any) (Callback, bool) {
	switch f := v.(type) {
	case Callback:
		return f, f != nil
	case func(int64, error):
		return Callback(f), f != nil
	}
	return nil, false
}
