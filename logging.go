package asyncexec

import "github.com/joeycumines/logiface"

// log returns a builder for the given level with the executor's identity
// attached. The logiface logger is nil-safe end to end, so call sites are
// valid whether or not WithLogger was configured; disabled levels cost a
// nil check.
func (c *core) log(level logiface.Level) *logiface.Builder[logiface.Event] {
	return c.logger.Build(level).Uint64("executor", c.id)
}
