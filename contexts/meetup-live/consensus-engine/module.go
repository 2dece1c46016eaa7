package consensusengine

import (
	"log/slog"

	httpadapter "overlap/contexts/meetup-live/consensus-engine/adapters/http"
	"overlap/contexts/meetup-live/consensus-engine/adapters/memory"
	"overlap/contexts/meetup-live/consensus-engine/application/commands"
	"overlap/contexts/meetup-live/consensus-engine/application/queries"
	"overlap/contexts/meetup-live/consensus-engine/application/workers"
	"overlap/contexts/meetup-live/consensus-engine/ports"
)

type Module struct {
	Handler       httpadapter.Handler
	Subscriptions queries.SubscriptionUseCase
	Relay         workers.OutboxRelay
	Store         *memory.Store
}

type Dependencies struct {
	Sessions  ports.SessionRepository
	Votes     ports.VoteRepository
	Outbox    ports.OutboxWriter
	OutboxSrc ports.OutboxRepository
	Publisher ports.EventPublisher
	Bus       ports.EventSubscriber
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	sessionUseCase := commands.SessionUseCase{
		Sessions: deps.Sessions,
		Votes:    deps.Votes,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Sessions:   deps.Sessions,
		Votes:      deps.Votes,
		Outbox:     deps.Outbox,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Controller: sessionUseCase,
		Logger:     deps.Logger,
	}
	queryUseCase := queries.SessionUseCase{
		Sessions: deps.Sessions,
		Votes:    deps.Votes,
	}
	return Module{
		Handler: httpadapter.Handler{
			Sessions: sessionUseCase,
			Votes:    voteUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
		Subscriptions: queries.SubscriptionUseCase{
			Bus:      deps.Bus,
			Sessions: deps.Sessions,
			Votes:    deps.Votes,
			Logger:   deps.Logger,
		},
		Relay: workers.OutboxRelay{
			Outbox:    deps.OutboxSrc,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(publisher ports.EventPublisher, bus ports.EventSubscriber, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Sessions:  store,
		Votes:     store,
		Outbox:    store,
		OutboxSrc: store,
		Publisher: publisher,
		Bus:       bus,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
