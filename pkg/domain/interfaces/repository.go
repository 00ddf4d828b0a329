package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Session() SessionRepository
	CodeVersion() CodeVersionRepository

	Close() error
}
