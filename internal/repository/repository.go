package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Set bundles every repository of one store backend.
type Set struct {
	Users   UserRepository
	Tickets TicketRepository
	Rewards RewardRepository
	Events  EventRepository
}

// NewPostgresSet builds the Postgres-backed repositories.
func NewPostgresSet(pool *pgxpool.Pool) Set {
	return Set{
		Users:   NewUserRepository(pool),
		Tickets: NewTicketRepository(pool),
		Rewards: NewRewardRepository(pool),
		Events:  NewEventRepository(pool),
	}
}
