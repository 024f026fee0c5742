package ports

// MessagePublisher is the slice of an MQTT client the state publisher needs.
type MessagePublisher interface {
	Publish(topic string, payload []byte, retain bool) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
}
