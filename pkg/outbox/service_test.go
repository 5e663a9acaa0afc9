package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/herovault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
)

func newOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	return dbtest.Open(t, &models.OutboxEvent{}, &models.OutboxDLQ{})
}

func TestEmitStoresEnvelope(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	tradeID := uuid.New()
	actor := uuid.New()

	require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventTradeWithdrawn,
		AggregateType: enums.AggregateTrade,
		AggregateID:   tradeID,
		Actor:         &ActorRef{AccountID: actor, Role: "user"},
		Data:          map[string]string{"trade_id": tradeID.String()},
	}))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, tradeID, rows[0].AggregateID)

	var env PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &env))
	require.Equal(t, 1, env.Version)
	require.NotEmpty(t, env.EventID)
	require.Equal(t, actor, env.Actor.AccountID)
	require.JSONEq(t, `{"trade_id":"`+tradeID.String()+`"}`, string(env.Data))
}

func TestEmitRequiresTransactionAndValidTypes(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))

	conn := newOutboxDB(t)
	err := svc.Emit(context.Background(), conn, DomainEvent{EventType: "nope", AggregateType: enums.AggregateTrade})
	require.Error(t, err)
}

func TestEmitIfNotExists(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	event := DomainEvent{
		EventType:     enums.EventDefinitionRetired,
		AggregateType: enums.AggregatePackageDefinition,
		AggregateID:   uuid.New(),
		Data:          map[string]int{"force_opened": 1},
	}

	require.NoError(t, svc.EmitIfNotExists(context.Background(), conn, event))
	require.NoError(t, svc.EmitIfNotExists(context.Background(), conn, event))

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
			EventType: enums.EventCardSold, AggregateType: enums.AggregateAccount,
			AggregateID: uuid.New(), Data: map[string]int{"i": i},
		}))
	}
	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("pubsub down")))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[2].ID, errors.New("bad payload"), 3))

	pending, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, rows[1].ID, pending[0].ID)
	require.Equal(t, 1, pending[0].AttemptCount)
	require.Equal(t, "pubsub down", *pending[0].LastError)
}

func TestRetentionDeletes(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	dlq := NewDLQRepository(conn)

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()
	for _, publishedAt := range []*time.Time{&old, &recent, nil} {
		row := models.OutboxEvent{
			EventType: enums.EventCardSold, AggregateType: enums.AggregateAccount,
			AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), PublishedAt: publishedAt,
		}
		require.NoError(t, conn.Create(&row).Error)
	}
	long := strings.Repeat("x", 2048)
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID: uuid.New(), EventType: enums.EventCardSold, AggregateType: enums.AggregateAccount,
		AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), ErrorReason: enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage: &long, FailedAt: old,
	}))

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	entries, err := dlq.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, *entries[0].ErrorMessage, maxDLQErrorLen)

	deleted, err = dlq.DeleteBefore(context.Background(), time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}
