package interfaces

// Service is a long running surface of the daemon, like the relayer HTTP API.
// Start must not block; Stop releases whatever Start acquired.
type Service interface {
	Start() error
	Stop()
}
