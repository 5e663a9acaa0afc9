package packages

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/herovault-backend/internal/ledger"
	"github.com/angelmondragon/herovault-backend/internal/rewards"
	"github.com/angelmondragon/herovault-backend/pkg/db"
	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
	"github.com/angelmondragon/herovault-backend/pkg/metrics"
	"github.com/angelmondragon/herovault-backend/pkg/outbox"
	"github.com/angelmondragon/herovault-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/herovault-backend/pkg/redis"
)

type unitOfWork interface {
	Do(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error
}

type drawer interface {
	Draw(ctx context.Context, spec rewards.DrawSpec, rng *rand.Rand) ([]uuid.UUID, error)
}

type cardResolver interface {
	Ordered(ctx context.Context, ids []uuid.UUID) ([]models.Card, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type openRecorder interface {
	IncPackagesOpened(trigger string)
}

// ServiceParams wires the package lifecycle. Locker and Metrics are optional.
type ServiceParams struct {
	Repo           Repository
	Holdings       *ledger.Store
	UnitOfWork     unitOfWork
	Generator      drawer
	Cards          cardResolver
	Outbox         eventEmitter
	Locker         redis.Locker
	Metrics        openRecorder
	Logger         *logger.Logger
	Rand           *rand.Rand
	RetireLockTTL  time.Duration
	FeaturedWindow time.Duration
}

type Service struct {
	repo           Repository
	holdings       *ledger.Store
	uow            unitOfWork
	generator      drawer
	cards          cardResolver
	outbox         eventEmitter
	locker         redis.Locker
	metrics        openRecorder
	logg           *logger.Logger
	rng            *rand.Rand
	retireLockTTL  time.Duration
	featuredWindow time.Duration
	now            func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("packages repository required")
	case params.Holdings == nil:
		return nil, fmt.Errorf("holdings store required")
	case params.UnitOfWork == nil:
		return nil, fmt.Errorf("unit of work required")
	case params.Generator == nil:
		return nil, fmt.Errorf("reward generator required")
	case params.Cards == nil:
		return nil, fmt.Errorf("card resolver required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Rand == nil:
		return nil, fmt.Errorf("random source required")
	}
	metricsRecorder := params.Metrics
	if metricsRecorder == nil {
		metricsRecorder = (*metrics.EconomyMetrics)(nil)
	}
	lockTTL := params.RetireLockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	window := params.FeaturedWindow
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &Service{
		repo:           params.Repo,
		holdings:       params.Holdings,
		uow:            params.UnitOfWork,
		generator:      params.Generator,
		cards:          params.Cards,
		outbox:         params.Outbox,
		locker:         params.Locker,
		metrics:        metricsRecorder,
		logg:           params.Logger,
		rng:            params.Rand,
		retireLockTTL:  lockTTL,
		featuredWindow: window,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// Purchase debits price*quantity and creates that many unopened instances.
func (s *Service) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if input.DefinitionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "definition id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"field": "quantity"})
	}

	var result *PurchaseResult
	err := s.uow.Do(ctx, "packages.purchase", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		def, err := repo.FindDefinitionForPurchase(ctx, input.DefinitionID)
		if err != nil {
			return mapRepoErr(err, "package definition not found", "load package definition")
		}
		if !def.IsAvailable {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "package definition is not available")
		}

		totalCost := def.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))
		h, err := s.holdings.WithTx(tx).Load(ctx, input.AccountID)
		if err != nil {
			return err
		}
		if err := h.ApplyCreditDelta(totalCost.Neg(), enums.CreditEventPackPurchase, def.ID); err != nil {
			return err
		}

		instances := make([]models.PackageInstance, input.Quantity)
		for i := range instances {
			instances[i] = models.PackageInstance{
				ID:           uuid.New(),
				AccountID:    input.AccountID,
				DefinitionID: def.ID,
			}
		}
		if err := repo.CreateInstances(ctx, instances); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create package instances")
		}
		if err := s.holdings.WithTx(tx).Save(ctx, h); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(instances))
		for i, inst := range instances {
			ids[i] = inst.ID
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPackagePurchased,
			AggregateType: enums.AggregateAccount,
			AggregateID:   input.AccountID,
			Actor:         actor(input.AccountID, h.Role),
			Data: payloads.PackagePurchasedEvent{
				AccountID:    input.AccountID,
				DefinitionID: def.ID,
				InstanceIDs:  ids,
				Quantity:     input.Quantity,
				TotalCost:    totalCost.StringFixed(2),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit package purchased")
		}

		result = &PurchaseResult{Instances: instances, TotalCost: totalCost, Balance: h.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"account_id":    input.AccountID.String(),
		"definition_id": input.DefinitionID.String(),
		"quantity":      input.Quantity,
	})
	s.logg.Info(logCtx, "package.purchased")
	return result, nil
}

// Open draws rewards for an owned, unopened instance and credits them to the owner.
func (s *Service) Open(ctx context.Context, input OpenInput) (*OpenResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if input.InstanceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}

	inst, err := s.repo.FindInstance(ctx, input.InstanceID)
	if err != nil {
		return nil, mapRepoErr(err, "package not found", "load package")
	}
	// someone else's package is indistinguishable from a missing one
	if inst.AccountID != input.AccountID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
	}

	opened, err := s.open(ctx, inst, eventOpen, actor(input.AccountID, enums.AccountRoleUser))
	if err != nil {
		return nil, err
	}

	cards, err := s.cards.Ordered(ctx, opened.Rewards)
	if err != nil {
		return nil, err
	}

	s.metrics.IncPackagesOpened(metrics.OpenTriggerUser)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"account_id":  input.AccountID.String(),
		"instance_id": inst.ID.String(),
		"rewards":     len(opened.Rewards),
	})
	s.logg.Info(logCtx, "package.opened")
	return &OpenResult{Instance: *opened, Cards: cards}, nil
}

// open runs the shared draw-and-apply path. The draw happens before the
// transaction; the transaction flips the instance with a compare-and-set and
// applies one +1 card delta per reward to the owner.
func (s *Service) open(ctx context.Context, inst *models.PackageInstance, event instanceEvent, by *outbox.ActorRef) (*models.PackageInstance, error) {
	if _, err := transition(inst.Opened, event); err != nil {
		return nil, err
	}

	def, err := s.repo.FindDefinition(ctx, inst.DefinitionID)
	if err != nil {
		return nil, mapRepoErr(err, "package not found", "load package definition")
	}
	spec := rewards.SpecFor(*def)
	drawn, err := s.generator.Draw(ctx, spec, s.rng)
	if err != nil {
		return nil, err
	}

	eventType := enums.EventPackageOpened
	if event == eventForceOpen {
		eventType = enums.EventPackageForceOpened
	}

	openedAt := s.now()
	err = s.uow.Do(ctx, "packages."+string(event), func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		flipped, err := repo.MarkOpened(ctx, inst.ID, drawn, openedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark package opened")
		}
		if !flipped {
			current, err := repo.FindInstance(ctx, inst.ID)
			if err != nil {
				return mapRepoErr(err, "package not found", "reload package")
			}
			if _, err := transition(current.Opened, event); err != nil {
				return err
			}
			return db.ErrStaleWrite
		}

		store := s.holdings.WithTx(tx)
		h, err := store.Load(ctx, inst.AccountID)
		if err != nil {
			return err
		}
		for _, cardID := range drawn {
			if err := h.ApplyCardDelta(cardID, 1); err != nil {
				return err
			}
		}
		if err := store.Save(ctx, h); err != nil {
			return err
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregatePackageInstance,
			AggregateID:   inst.ID,
			Actor:         by,
			Data: payloads.PackageOpenedEvent{
				InstanceID:   inst.ID,
				AccountID:    inst.AccountID,
				DefinitionID: inst.DefinitionID,
				Rewards:      drawn,
				Forced:       event == eventForceOpen,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit package opened")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	opened := *inst
	opened.Opened = true
	opened.Rewards = drawn
	opened.OpenedAt = &openedAt
	return &opened, nil
}

// RetireDefinition force-opens every unopened instance of the definition for
// its owner, then deletes the definition and all of its instances.
func (s *Service) RetireDefinition(ctx context.Context, input RetireInput) (*RetireResult, error) {
	if input.DefinitionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "definition id required")
	}
	if _, err := s.repo.FindDefinition(ctx, input.DefinitionID); err != nil {
		return nil, mapRepoErr(err, "package definition not found", "load package definition")
	}

	if s.locker != nil {
		release, err := s.locker.AcquireLock(ctx, "retire:"+input.DefinitionID.String(), uuid.NewString(), s.retireLockTTL)
		if err != nil {
			if errors.Is(err, redis.ErrLockHeld) {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "retirement already in progress")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire retirement lock")
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "retire.lock_release_failed")
			}
		}()
	}

	if _, err := s.repo.SetAvailability(ctx, input.DefinitionID, false); err != nil {
		return nil, mapRepoErr(err, "package definition not found", "disable package definition")
	}

	pending, err := s.repo.ListUnopenedByDefinition(ctx, input.DefinitionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unopened packages")
	}

	by := actor(input.ActorID, enums.AccountRoleAdmin)
	forced := 0
	for i := range pending {
		inst := pending[i]
		if _, err := s.open(ctx, &inst, eventForceOpen, by); err != nil {
			// the owner opened it between the listing and our compare-and-set
			if pkgerrors.IsCode(err, pkgerrors.CodeAlreadyOpened) {
				continue
			}
			return nil, err
		}
		forced++
		s.metrics.IncPackagesOpened(metrics.OpenTriggerRetire)
	}

	result := &RetireResult{DefinitionID: input.DefinitionID, ForceOpened: forced}
	err = s.uow.Do(ctx, "packages.retire", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		remaining, err := repo.CountUnopenedByDefinition(ctx, input.DefinitionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unopened packages")
		}
		if remaining > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "unopened packages appeared during retirement")
		}
		deleted, err := repo.DeleteInstancesByDefinition(ctx, input.DefinitionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete package instances")
		}
		if err := repo.DeleteDefinition(ctx, input.DefinitionID); err != nil {
			return mapRepoErr(err, "package definition not found", "delete package definition")
		}
		result.DeletedInstances = deleted
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDefinitionRetired,
			AggregateType: enums.AggregatePackageDefinition,
			AggregateID:   input.DefinitionID,
			Actor:         by,
			Data: payloads.DefinitionRetiredEvent{
				DefinitionID:     input.DefinitionID,
				ForceOpened:      forced,
				DeletedInstances: int(deleted),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"definition_id":     input.DefinitionID.String(),
		"force_opened":      forced,
		"deleted_instances": result.DeletedInstances,
	})
	s.logg.Info(logCtx, "package.definition_retired")
	return result, nil
}

func (s *Service) CreateDefinition(ctx context.Context, input CreateDefinitionInput) (*models.PackageDefinition, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if !input.Price.Equal(input.Price.Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price supports at most two decimals")
	}
	def := &models.PackageDefinition{
		Name:                name,
		Description:         strings.TrimSpace(input.Description),
		Price:               input.Price,
		Size:                input.Size,
		GuaranteedRare:      input.GuaranteedRare,
		GuaranteedEpic:      input.GuaranteedEpic,
		GuaranteedLegendary: input.GuaranteedLegendary,
		IsAvailable:         input.Available == nil || *input.Available,
	}
	if err := rewards.SpecFor(*def).Validate(); err != nil {
		return nil, err
	}
	if input.CreatedBy != uuid.Nil {
		createdBy := input.CreatedBy
		def.CreatedBy = &createdBy
	}
	if err := s.repo.CreateDefinition(ctx, def); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create package definition")
	}
	return def, nil
}

// ToggleAvailability flips is_available and returns the updated definition.
func (s *Service) ToggleAvailability(ctx context.Context, definitionID uuid.UUID) (*models.PackageDefinition, error) {
	def, err := s.repo.FindDefinition(ctx, definitionID)
	if err != nil {
		return nil, mapRepoErr(err, "package definition not found", "load package definition")
	}
	updated, err := s.repo.SetAvailability(ctx, definitionID, !def.IsAvailable)
	if err != nil {
		return nil, mapRepoErr(err, "package definition not found", "update package definition")
	}
	return updated, nil
}

func (s *Service) ListDefinitions(ctx context.Context, query ListDefinitionsQuery) ([]models.PackageDefinition, error) {
	filter, ok := ParseDefinitionFilter(string(query.Filter))
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid filter").
			WithDetails(map[string]any{"allowed": []DefinitionFilter{FilterAll, FilterAvailable, FilterFeatured}})
	}
	now := query.Now
	if now.IsZero() {
		now = s.now()
	}

	var (
		availableOnly bool
		since         *time.Time
	)
	switch filter {
	case FilterAvailable:
		availableOnly = true
	case FilterFeatured:
		availableOnly = true
		cutoff := now.Add(-s.featuredWindow)
		since = &cutoff
	}
	defs, err := s.repo.ListDefinitions(ctx, availableOnly, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list package definitions")
	}
	return defs, nil
}

func (s *Service) GetDefinition(ctx context.Context, definitionID uuid.UUID) (*models.PackageDefinition, error) {
	def, err := s.repo.FindDefinition(ctx, definitionID)
	if err != nil {
		return nil, mapRepoErr(err, "package definition not found", "load package definition")
	}
	return def, nil
}

func (s *Service) ListUnopened(ctx context.Context, accountID uuid.UUID) ([]models.PackageInstance, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	rows, err := s.repo.ListUnopened(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unopened packages")
	}
	return rows, nil
}

func mapRepoErr(err error, notFound, op string) error {
	if errors.Is(err, ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func actor(accountID uuid.UUID, role enums.AccountRole) *outbox.ActorRef {
	if accountID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{AccountID: accountID, Role: string(role)}
}
