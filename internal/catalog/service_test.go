package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/herovault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
)

func seedCatalog(t *testing.T) (*Service, map[string]models.Card) {
	t.Helper()
	conn := dbtest.Open(t, &models.Card{})
	cards := map[string]models.Card{}
	for _, c := range []struct {
		name   string
		rarity enums.Rarity
	}{
		{"Spider-Man", enums.RarityCommon},
		{"Spider-Woman", enums.RarityUncommon},
		{"Iron Man", enums.RarityRare},
		{"Thor", enums.RarityLegendary},
	} {
		card := models.Card{Name: c.name, Rarity: c.rarity}
		require.NoError(t, conn.Create(&card).Error)
		cards[c.name] = card
	}
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, cards
}

func TestIDsByRarity(t *testing.T) {
	svc, cards := seedCatalog(t)

	ids, err := svc.IDsByRarity(context.Background(), enums.RarityLegendary)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{cards["Thor"].ID}, ids)

	ids, err = svc.IDsByRarity(context.Background(), enums.RarityEpic)
	require.NoError(t, err)
	require.Empty(t, ids)

	_, err = svc.IDsByRarity(context.Background(), enums.Rarity("mythic"))
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestLookupAndOrdered(t *testing.T) {
	svc, cards := seedCatalog(t)
	thor, iron := cards["Thor"].ID, cards["Iron Man"].ID

	ordered, err := svc.Ordered(context.Background(), []uuid.UUID{thor, iron, thor})
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	require.Equal(t, "Thor", ordered[0].Name)
	require.Equal(t, "Iron Man", ordered[1].Name)
	require.Equal(t, enums.RarityLegendary, ordered[2].Rarity)

	_, err = svc.Lookup(context.Background(), []uuid.UUID{thor, uuid.New()})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestGet(t *testing.T) {
	svc, cards := seedCatalog(t)

	card, err := svc.Get(context.Background(), cards["Iron Man"].ID)
	require.NoError(t, err)
	require.Equal(t, "Iron Man", card.Name)
	require.Equal(t, enums.RarityRare, card.Rarity)

	_, err = svc.Get(context.Background(), uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestSearch(t *testing.T) {
	svc, cards := seedCatalog(t)

	found, err := svc.Search(context.Background(), "spider", 0)
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, "Spider-Man", found[0].Name)

	found, err = svc.SearchExcluding(context.Background(), "SPIDER", []uuid.UUID{cards["Spider-Man"].ID}, 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Spider-Woman", found[0].Name)

	require.Equal(t, DefaultSearchLimit, clampLimit(-1))
	require.Equal(t, MaxSearchLimit, clampLimit(1000))
}
