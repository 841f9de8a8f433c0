package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/tier"
	"github.com/travelquest/travelquest-hub/internal/domain/user"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
	"github.com/travelquest/travelquest-hub/pkg/logger"
	"github.com/travelquest/travelquest-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD VISIT COMMAND
// Validates a visit against the catalog and the user's tier, then stores it
// with a single insert-if-absent keyed by (user_id, landmark_id).
// ══════════════════════════════════════════════════════════════════════════════

// Payload limits.
const (
	MaxDiaryNotesLength = 5000
	MaxTravelTipsLength = 2000
)

// RecordVisitCommand contains the data to record a visit.
type RecordVisitCommand struct {
	User       user.User
	LandmarkID shared.LandmarkID
	Payload    visit.Payload
}

// payloadRules mirrors visit.Payload with validation tags.
type payloadRules struct {
	Photos     []string `validate:"omitempty,dive,required,url"`
	DiaryNotes *string  `validate:"omitempty,max=5000"`
	TravelTips *string  `validate:"omitempty,max=2000"`
}

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks identifiers and payload shape. Tier limits are checked by the handler.
func (c RecordVisitCommand) Validate() error {
	if err := c.validateIDs(); err != nil {
		return err
	}
	return c.validatePayload()
}

func (c RecordVisitCommand) validateIDs() error {
	if err := c.User.Validate(); err != nil {
		return err
	}
	if !c.LandmarkID.IsValid() {
		return shared.ErrInvalidLandmark
	}
	return nil
}

func (c RecordVisitCommand) validatePayload() error {
	rules := payloadRules{
		Photos:     c.Payload.Photos,
		DiaryNotes: c.Payload.DiaryNotes,
		TravelTips: c.Payload.TravelTips,
	}
	if err := payloadValidator.Struct(rules); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return shared.ValidationError("visit", "RecordVisit", describeFieldError(verrs[0]), err)
		}
		return shared.ValidationError("visit", "RecordVisit", "invalid payload", err)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "url":
		return fmt.Sprintf("%s must contain valid URLs", fe.StructField())
	case "max":
		return fmt.Sprintf("%s exceeds %s characters", fe.StructField(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.StructField())
	}
}

// RecordVisitResult contains the stored visit and the landmark it refers to.
type RecordVisitResult struct {
	Visit    *visit.Visit
	Landmark *landmark.Landmark
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordVisitHandler handles the RecordVisitCommand.
type RecordVisitHandler struct {
	catalog landmark.Catalog
	gate    tier.Gate
	visits  visit.Store
	ids     IDGenerator
	clock   timeutil.Clock
	logger  *slog.Logger
}

// NewRecordVisitHandler creates a new RecordVisitHandler.
func NewRecordVisitHandler(
	catalog landmark.Catalog,
	gate tier.Gate,
	visits visit.Store,
	ids IDGenerator,
	clock timeutil.Clock,
	log *slog.Logger,
) *RecordVisitHandler {
	if gate == nil {
		gate = tier.StaticGate{}
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &RecordVisitHandler{
		catalog: catalog,
		gate:    gate,
		visits:  visits,
		ids:     ids,
		clock:   clock,
		logger:  logger.OrDefault(log).With(logger.Component("visit_recorder")),
	}
}

// Handle executes the record visit command. It either creates exactly one
// visit or writes nothing. Checks run in order: identifiers, landmark
// existence, tier access, photo allowance, then payload shape.
func (h *RecordVisitHandler) Handle(ctx context.Context, cmd RecordVisitCommand) (*RecordVisitResult, error) {
	if err := cmd.validateIDs(); err != nil {
		return nil, err
	}

	lm, err := h.catalog.Get(ctx, cmd.LandmarkID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.WrapError("landmark", "RecordVisit", shared.ErrNotFound,
				fmt.Sprintf("landmark %q not found", cmd.LandmarkID), err)
		}
		return nil, fmt.Errorf("record_visit: load landmark: %w", err)
	}

	limits := h.gate.Limits(cmd.User.EffectiveTier())

	if lm.IsPremium() && !limits.CanAccessPremiumLandmarks {
		return nil, shared.TierRestrictedError("RecordVisit",
			fmt.Sprintf("landmark %q requires a premium subscription", lm.ID))
	}

	if !limits.AllowsPhotos(cmd.Payload.PhotoCount()) {
		return nil, shared.TierRestrictedError("RecordVisit",
			fmt.Sprintf("%d photos exceed the %s tier limit of %d", cmd.Payload.PhotoCount(), cmd.User.EffectiveTier(), limits.PhotosPerVisit))
	}

	if err := cmd.validatePayload(); err != nil {
		return nil, err
	}

	v, err := visit.New(h.ids.GenerateID(), cmd.User.ID, lm, cmd.Payload, h.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("record_visit: build visit: %w", err)
	}

	created, err := h.visits.Insert(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("record_visit: insert: %w", err)
	}
	if !created {
		return nil, shared.ErrVisitAlreadyRecorded
	}

	h.logger.Debug("visit recorded",
		logger.UserID(v.UserID.String()),
		logger.LandmarkID(v.LandmarkID.String()),
		logger.Points(v.PointsEarned.Int()),
	)

	return &RecordVisitResult{Visit: v, Landmark: lm}, nil
}
