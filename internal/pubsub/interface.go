package pubsub

// PubSubClient publishes lifecycle events for downstream consumers and
// decodes incoming messages.
type PubSubClient interface {
	SendMessage(topic EventType, data any) error
	ProcessMessage(data []byte, returnValue any) error
}
