package repository

import "debate_hub/internal/storage"

type Repositories struct {
	User   UserRepository
	Debate DebateRepository
}

func NewRepositories(db *storage.PostgresDB) *Repositories {
	return &Repositories{
		User:   NewUserRepository(db),
		Debate: NewDebateRepository(db),
	}
}
