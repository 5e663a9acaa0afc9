package packages

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
	"github.com/angelmondragon/herovault-backend/pkg/metrics"
)

func TestPurchaseDebitsAndCreatesInstances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountID := f.account(t, 10)
	def := f.definition(t, 3, 5, 0, 0, 0)

	result, err := f.svc.Purchase(ctx, PurchaseInput{AccountID: accountID, DefinitionID: def.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, result.Instances, 3)
	require.True(t, result.TotalCost.Equal(decimal.NewFromInt(9)))
	require.True(t, result.Balance.Equal(decimal.NewFromInt(1)))

	require.True(t, f.holdings(t, accountID).Balance.Equal(decimal.NewFromInt(1)))
	unopened, err := f.svc.ListUnopened(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, unopened, 3)
	for _, inst := range unopened {
		require.False(t, inst.Opened)
		require.Empty(t, inst.Rewards)
	}

	credit, err := f.store.ListCreditEvents(ctx, accountID, 10)
	require.NoError(t, err)
	require.Equal(t, enums.CreditEventPackPurchase, credit[0].Type)
	require.True(t, credit[0].Amount.Equal(decimal.NewFromInt(-9)))
	require.Len(t, f.events(t, enums.EventPackagePurchased), 1)
}

func TestPurchaseRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountID := f.account(t, 5)
	def := f.definition(t, 3, 5, 0, 0, 0)
	hidden := f.definition(t, 1, 5, 0, 0, 0)
	_, err := f.svc.ToggleAvailability(ctx, hidden.ID)
	require.NoError(t, err)

	cases := []struct {
		name  string
		input PurchaseInput
		code  pkgerrors.Code
	}{
		{"zero quantity", PurchaseInput{AccountID: accountID, DefinitionID: def.ID, Quantity: 0}, pkgerrors.CodeValidation},
		{"negative quantity", PurchaseInput{AccountID: accountID, DefinitionID: def.ID, Quantity: -2}, pkgerrors.CodeValidation},
		{"unknown definition", PurchaseInput{AccountID: accountID, DefinitionID: uuid.New(), Quantity: 1}, pkgerrors.CodeNotFound},
		{"unavailable definition", PurchaseInput{AccountID: accountID, DefinitionID: hidden.ID, Quantity: 1}, pkgerrors.CodeStateConflict},
		{"not enough credits", PurchaseInput{AccountID: accountID, DefinitionID: def.ID, Quantity: 2}, pkgerrors.CodeInsufficientCredits},
		{"unknown account", PurchaseInput{AccountID: uuid.New(), DefinitionID: def.ID, Quantity: 1}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Purchase(ctx, tc.input)
			require.Equal(t, tc.code, pkgerrors.CodeOf(err), "err=%v", err)
		})
	}

	require.True(t, f.holdings(t, accountID).Balance.Equal(decimal.NewFromInt(5)), "failed purchases leave the balance untouched")
	unopened, err := f.svc.ListUnopened(ctx, accountID)
	require.NoError(t, err)
	require.Empty(t, unopened)
}

func TestOpenCreditsRewardsInDrawOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountID := f.account(t, 10)
	def := f.definition(t, 1, 5, 1, 1, 1)
	bought, err := f.svc.Purchase(ctx, PurchaseInput{AccountID: accountID, DefinitionID: def.ID, Quantity: 1})
	require.NoError(t, err)

	result, err := f.svc.Open(ctx, OpenInput{AccountID: accountID, InstanceID: bought.Instances[0].ID})
	require.NoError(t, err)
	require.True(t, result.Instance.Opened)
	require.NotNil(t, result.Instance.OpenedAt)
	require.Len(t, result.Cards, 5)
	require.Equal(t, enums.RarityLegendary, result.Cards[0].Rarity)
	require.Equal(t, enums.RarityEpic, result.Cards[1].Rarity)
	require.Equal(t, enums.RarityRare, result.Cards[2].Rarity)
	for i, card := range result.Cards {
		require.Equal(t, result.Instance.Rewards[i], card.ID)
	}

	h := f.holdings(t, accountID)
	require.Equal(t, 5, h.TotalCards())

	var stored models.PackageInstance
	require.NoError(t, f.conn.First(&stored, "id = ?", bought.Instances[0].ID).Error)
	require.True(t, stored.Opened)
	require.Equal(t, []uuid.UUID(result.Instance.Rewards), []uuid.UUID(stored.Rewards))

	require.Len(t, f.events(t, enums.EventPackageOpened), 1)
	require.Equal(t, 1, f.metrics.counts[metrics.OpenTriggerUser])
}

func TestOpenRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, 10)
	stranger := f.account(t, 10)
	def := f.definition(t, 1, 3, 0, 0, 0)
	bought, err := f.svc.Purchase(ctx, PurchaseInput{AccountID: owner, DefinitionID: def.ID, Quantity: 1})
	require.NoError(t, err)
	instanceID := bought.Instances[0].ID

	_, err = f.svc.Open(ctx, OpenInput{AccountID: stranger, InstanceID: instanceID})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = f.svc.Open(ctx, OpenInput{AccountID: owner, InstanceID: uuid.New()})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = f.svc.Open(ctx, OpenInput{AccountID: owner, InstanceID: instanceID})
	require.NoError(t, err)

	_, err = f.svc.Open(ctx, OpenInput{AccountID: owner, InstanceID: instanceID})
	require.Equal(t, pkgerrors.CodeAlreadyOpened, pkgerrors.CodeOf(err))
	require.Equal(t, 3, f.holdings(t, owner).TotalCards(), "a rejected re-open credits nothing")
}

func TestOpenFailsWhenGuaranteedTierIsEmpty(t *testing.T) {
	f := newFixture(t, enums.RarityLegendary)
	ctx := context.Background()
	accountID := f.account(t, 10)
	def := f.definition(t, 1, 3, 0, 0, 1)
	bought, err := f.svc.Purchase(ctx, PurchaseInput{AccountID: accountID, DefinitionID: def.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.svc.Open(ctx, OpenInput{AccountID: accountID, InstanceID: bought.Instances[0].ID})
	require.Equal(t, pkgerrors.CodeCatalogExhausted, pkgerrors.CodeOf(err))

	unopened, err := f.svc.ListUnopened(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, unopened, 1, "instance stays unopened")
	require.Zero(t, f.holdings(t, accountID).TotalCards())
}

func TestConcurrentOpensHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountID := f.account(t, 10)
	def := f.definition(t, 1, 4, 0, 0, 0)
	bought, err := f.svc.Purchase(ctx, PurchaseInput{AccountID: accountID, DefinitionID: def.ID, Quantity: 1})
	require.NoError(t, err)

	const racers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		codes     []pkgerrors.Code
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Open(ctx, OpenInput{AccountID: accountID, InstanceID: bought.Instances[0].ID})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			codes = append(codes, pkgerrors.CodeOf(err))
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	for _, code := range codes {
		require.Equal(t, pkgerrors.CodeAlreadyOpened, code)
	}
	require.Equal(t, 4, f.holdings(t, accountID).TotalCards())
}

func TestRetireDefinitionForceOpensAndDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, 10)
	bob := f.account(t, 10)
	admin := uuid.New()
	def := f.definition(t, 1, 3, 1, 0, 0)
	other := f.definition(t, 1, 3, 0, 0, 0)

	aliceBuy, err := f.svc.Purchase(ctx, PurchaseInput{AccountID: alice, DefinitionID: def.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.Purchase(ctx, PurchaseInput{AccountID: bob, DefinitionID: def.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.Purchase(ctx, PurchaseInput{AccountID: bob, DefinitionID: other.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.Open(ctx, OpenInput{AccountID: alice, InstanceID: aliceBuy.Instances[0].ID})
	require.NoError(t, err)

	result, err := f.svc.RetireDefinition(ctx, RetireInput{DefinitionID: def.ID, ActorID: admin})
	require.NoError(t, err)
	require.Equal(t, 2, result.ForceOpened)
	require.EqualValues(t, 3, result.DeletedInstances)

	require.Equal(t, 6, f.holdings(t, alice).TotalCards())
	require.Equal(t, 3, f.holdings(t, bob).TotalCards())

	_, err = f.svc.GetDefinition(ctx, def.ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	var remaining int64
	require.NoError(t, f.conn.Model(&models.PackageInstance{}).Where("definition_id = ?", def.ID).Count(&remaining).Error)
	require.Zero(t, remaining)

	bobUnopened, err := f.svc.ListUnopened(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobUnopened, 1, "packages of other definitions are untouched")

	require.Len(t, f.events(t, enums.EventPackageForceOpened), 2)
	require.Len(t, f.events(t, enums.EventDefinitionRetired), 1)
	require.Equal(t, 2, f.metrics.counts[metrics.OpenTriggerRetire])
	require.Equal(t, []string{"retire:" + def.ID.String()}, f.locker.released)

	_, err = f.svc.RetireDefinition(ctx, RetireInput{DefinitionID: def.ID, ActorID: admin})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRetireDefinitionRespectsLock(t *testing.T) {
	f := newFixture(t)
	def := f.definition(t, 1, 3, 0, 0, 0)
	f.locker.held["retire:"+def.ID.String()] = true

	_, err := f.svc.RetireDefinition(context.Background(), RetireInput{DefinitionID: def.ID})
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	got, err := f.svc.GetDefinition(context.Background(), def.ID)
	require.NoError(t, err)
	require.True(t, got.IsAvailable, "nothing changes while another retirement runs")
}

func TestCreateDefinitionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	closed := false

	cases := map[string]CreateDefinitionInput{
		"blank name":           {Name: " ", Price: decimal.NewFromInt(1), Size: 3},
		"negative price":       {Name: "x", Price: decimal.NewFromInt(-1), Size: 3},
		"fractional cents":     {Name: "x", Price: decimal.RequireFromString("1.005"), Size: 3},
		"zero size":            {Name: "x", Price: decimal.NewFromInt(1), Size: 0},
		"guarantees over size": {Name: "x", Price: decimal.NewFromInt(1), Size: 2, GuaranteedRare: 2, GuaranteedEpic: 1},
		"negative guarantee":   {Name: "x", Price: decimal.NewFromInt(1), Size: 2, GuaranteedEpic: -1},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateDefinition(ctx, input)
			require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}

	def, err := f.svc.CreateDefinition(ctx, CreateDefinitionInput{
		Name: "Closed", Price: decimal.NewFromInt(2), Size: 3, Available: &closed, CreatedBy: uuid.New(),
	})
	require.NoError(t, err)
	require.False(t, def.IsAvailable)
	require.NotNil(t, def.CreatedBy)
}

func TestListDefinitionsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fresh := f.definition(t, 1, 3, 0, 0, 0)
	old := f.definition(t, 1, 3, 0, 0, 0)
	hidden := f.definition(t, 1, 3, 0, 0, 0)
	require.NoError(t, f.conn.Model(&models.PackageDefinition{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().UTC().Add(-45*24*time.Hour)).Error)
	toggled, err := f.svc.ToggleAvailability(ctx, hidden.ID)
	require.NoError(t, err)
	require.False(t, toggled.IsAvailable)

	ids := func(defs []models.PackageDefinition) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(defs))
		for _, d := range defs {
			out = append(out, d.ID)
		}
		return out
	}

	all, err := f.svc.ListDefinitions(ctx, ListDefinitionsQuery{Filter: FilterAll})
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{fresh.ID, old.ID, hidden.ID}, ids(all))

	available, err := f.svc.ListDefinitions(ctx, ListDefinitionsQuery{Filter: FilterAvailable})
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{fresh.ID, old.ID}, ids(available))

	featured, err := f.svc.ListDefinitions(ctx, ListDefinitionsQuery{Filter: FilterFeatured})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{fresh.ID}, ids(featured))

	_, err = f.svc.ListDefinitions(ctx, ListDefinitionsQuery{Filter: "popular"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
