package trades

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/herovault-backend/internal/catalog"
	"github.com/angelmondragon/herovault-backend/internal/ledger"
	"github.com/angelmondragon/herovault-backend/pkg/db"
	"github.com/angelmondragon/herovault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
	"github.com/angelmondragon/herovault-backend/pkg/outbox"
)

type fixture struct {
	conn      *gorm.DB
	svc       *Service
	store     *ledger.Store
	cards     []uuid.UUID
	counts    *tradeCounter
	conflicts *conflictCounter
}

type tradeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *tradeCounter) IncTrade(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[outcome]++
}

func (c *tradeCounter) get(outcome string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[outcome]
}

// conflictCounter records how the unit of work saw stale writes.
type conflictCounter struct {
	mu        sync.Mutex
	conflicts int
	exhausted int
}

func (c *conflictCounter) ObserveConflict(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conflicts++
}

func (c *conflictCounter) ObserveRetriesExhausted(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exhausted++
}

func (c *conflictCounter) get() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conflicts, c.exhausted
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t, models.All()...)

	names := []string{"Aurora", "Blaze", "Cinder", "Drift", "Ember", "Frost"}
	cards := make([]uuid.UUID, 0, len(names))
	for i, name := range names {
		card := models.Card{Name: name, Rarity: enums.Rarities()[i%len(enums.Rarities())]}
		require.NoError(t, conn.Create(&card).Error)
		cards = append(cards, card.ID)
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	conflicts := &conflictCounter{}
	uow, err := db.NewUnitOfWork(db.Wrap(conn), db.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Observer: conflicts})
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "trades-test", Output: io.Discard})
	store := ledger.NewStore(conn)
	counts := &tradeCounter{counts: map[string]int{}}
	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(conn),
		Holdings:   store,
		UnitOfWork: uow,
		Catalog:    catalogSvc,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Metrics:    counts,
		Logger:     logg,
	})
	require.NoError(t, err)

	return &fixture{conn: conn, svc: svc, store: store, cards: cards, counts: counts, conflicts: conflicts}
}

// account creates an account holding one copy of each listed card.
func (f *fixture) account(t *testing.T, credits string, cards ...uuid.UUID) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	_, err := f.store.Create(ctx, id, enums.AccountRoleUser, decimal.RequireFromString(credits))
	require.NoError(t, err)
	if len(cards) == 0 {
		return id
	}
	h, err := f.store.Load(ctx, id)
	require.NoError(t, err)
	for _, cardID := range cards {
		require.NoError(t, h.ApplyCardDelta(cardID, 1))
	}
	require.NoError(t, f.store.Save(ctx, h))
	return id
}

func (f *fixture) holdings(t *testing.T, accountID uuid.UUID) *ledger.Holdings {
	t.Helper()
	h, err := f.store.Load(context.Background(), accountID)
	require.NoError(t, err)
	return h
}

func (f *fixture) events(t *testing.T, eventType enums.OutboxEventType) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", eventType).Find(&rows).Error)
	return rows
}

func credits(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}
