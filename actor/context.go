package actor

// Context carries a single delivered message plus the identities needed to
// reply or spawn further work.
type Context interface {
	Engine() *Engine
	Self() *PID
	Sender() *PID
	Message() interface{}
}

type messageContext struct {
	engine  *Engine
	self    *PID
	sender  *PID
	message interface{}
}

func (c *messageContext) Engine() *Engine      { return c.engine }
func (c *messageContext) Self() *PID           { return c.self }
func (c *messageContext) Sender() *PID         { return c.sender }
func (c *messageContext) Message() interface{} { return c.message }
