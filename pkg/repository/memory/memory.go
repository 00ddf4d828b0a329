package memory

import (
	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
)

// ErrNotFound is returned when a session or code version does not resolve for the caller
var ErrNotFound = interfaces.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	session     *sessionRepository
	codeVersion *codeVersionRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	sessionRepo := newSessionRepository()

	return &Memory{
		session:     sessionRepo,
		codeVersion: newCodeVersionRepository(sessionRepo),
	}
}

func (m *Memory) Session() interfaces.SessionRepository {
	return m.session
}

func (m *Memory) CodeVersion() interfaces.CodeVersionRepository {
	return m.codeVersion
}

func (m *Memory) Close() error {
	return nil
}
