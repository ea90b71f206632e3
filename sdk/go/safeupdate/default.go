package safeupdate

// std is the process-wide client behind the package-level functions.
var std = mustNew()

func mustNew() *Client {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

// SetPolicy replaces the process-wide policy. It never fails and never merges
// with the previous value.
func SetPolicy(cfg Config) {
	std.SetPolicy(cfg)
}

// CurrentPolicy returns a copy of the process-wide policy.
func CurrentPolicy() Config {
	return std.CurrentPolicy()
}

// Wrap guards next with the process-wide policy. Policy changes made later
// with SetPolicy apply to collections wrapped earlier.
func Wrap(collection string, next Updater) *Collection {
	return std.Wrap(collection, next)
}

// Check evaluates an update against the process-wide policy without running it.
func Check(collection string, selector, modifier Document, opts UpdateOptions) Result {
	return std.Check(collection, selector, modifier, opts)
}
