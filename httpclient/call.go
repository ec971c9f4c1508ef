package httpclient

// Call is the handle of a request started with Client.Start.
// Its ID is known immediately; the outcome arrives later.
type Call struct {
	id   string
	done chan struct{}
	resp *Response
	err  error
}

// ID returns the registry identifier to pass to Client.Cancel
func (c *Call) ID() string { return c.id }

// Done is closed once the request chain has finished
func (c *Call) Done() <-chan struct{} { return c.done }

// Wait blocks until the request chain finishes and returns its outcome
func (c *Call) Wait() (*Response, error) {
	<-c.done
	return c.resp, c.err
}
