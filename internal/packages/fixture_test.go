package packages

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
	"github.com/angelmondragon/herovault-backend/internal/rewards"
	"github.com/angelmondragon/herovault-backend/pkg/db"
	"github.com/angelmondragon/herovault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
	"github.com/angelmondragon/herovault-backend/pkg/outbox"
	"github.com/angelmondragon/herovault-backend/pkg/redis"
)

type fixture struct {
	conn      *gorm.DB
	svc       *Service
	store     *ledger.Store
	cards     map[enums.Rarity][]uuid.UUID
	locker    *fakeLocker
	metrics   *openCounter
	conflicts *conflictCounter
}

type openCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *openCounter) IncPackagesOpened(trigger string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[trigger]++
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
}

func (l *fakeLocker) AcquireLock(_ context.Context, name, _ string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, redis.ErrLockHeld
	}
	l.held[name] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, name)
		l.released = append(l.released, name)
		return nil
	}, nil
}

// newFixture seeds two cards per rarity, skipping the listed rarities.
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

func newFixture(t *testing.T, skip ...enums.Rarity) *fixture {
	t.Helper()
	conn := dbtest.Open(t, models.All()...)

	skipped := map[enums.Rarity]bool{}
	for _, r := range skip {
		skipped[r] = true
	}
	cards := map[enums.Rarity][]uuid.UUID{}
	for _, r := range enums.Rarities() {
		if skipped[r] {
			continue
		}
		for i := 0; i < 2; i++ {
			card := models.Card{Name: string(r) + " hero " + uuid.NewString()[:4], Rarity: r}
			require.NoError(t, conn.Create(&card).Error)
			cards[r] = append(cards[r], card.ID)
		}
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	gen, err := rewards.NewGenerator(catalogSvc, rewards.DefaultRarityWeights())
	require.NoError(t, err)
	conflicts := &conflictCounter{}
	uow, err := db.NewUnitOfWork(db.Wrap(conn), db.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Observer: conflicts})
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "packages-test", Output: io.Discard})
	store := ledger.NewStore(conn)
	locker := &fakeLocker{held: map[string]bool{}}
	counter := &openCounter{counts: map[string]int{}}
	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(conn),
		Holdings:   store,
		UnitOfWork: uow,
		Generator:  gen,
		Cards:      catalogSvc,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Locker:     locker,
		Metrics:    counter,
		Logger:     logg,
		Rand:       rewards.NewSource(42),
	})
	require.NoError(t, err)

	return &fixture{conn: conn, svc: svc, store: store, cards: cards, locker: locker, metrics: counter, conflicts: conflicts}
}

func (f *fixture) account(t *testing.T, credits int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := f.store.Create(context.Background(), id, enums.AccountRoleUser, decimal.NewFromInt(credits))
	require.NoError(t, err)
	return id
}

func (f *fixture) definition(t *testing.T, price int64, size, rare, epic, legendary int) *models.PackageDefinition {
	t.Helper()
	def, err := f.svc.CreateDefinition(context.Background(), CreateDefinitionInput{
		Name:                "Starter " + uuid.NewString()[:6],
		Description:         "test package",
		Price:               decimal.NewFromInt(price),
		Size:                size,
		GuaranteedRare:      rare,
		GuaranteedEpic:      epic,
		GuaranteedLegendary: legendary,
	})
	require.NoError(t, err)
	return def
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
