package notifications

import "context"

// Message is one notification. Attributes let subscribers filter without
// parsing the body.
type Message struct {
	Subject    string
	Body       string
	Attributes map[string]string
}

type Publisher interface {
	Publish(ctx context.Context, message Message) error
}
