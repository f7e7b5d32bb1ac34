package controller

// Message types exchanged between a page and its controller.
const (
	TypeGetVersion = "GET_VERSION"
	TypeVersion    = "VERSION"
)

// Message is a page to controller message or its reply.
type Message struct {
	Type    string `json:"type"`
	Version string `json:"version,omitempty"`
}

// Message answers a message sent by a page. A version query is answered
// with this generation's version; any other message has no reply.
func (c *Controller) Message(m Message) (Message, bool) {
	if m.Type != TypeGetVersion {
		return Message{}, false
	}
	return Message{Type: TypeVersion, Version: c.opts.Version}, true
}
