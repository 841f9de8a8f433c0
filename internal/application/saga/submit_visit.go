// Package saga contains business processes that orchestrate several domain
// operations in a fixed order.
package saga

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/travelquest/travelquest-hub/internal/application/command"
	"github.com/travelquest/travelquest-hub/internal/application/eventhandler"
	"github.com/travelquest/travelquest-hub/internal/domain/completion"
	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/user"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
	"github.com/travelquest/travelquest-hub/pkg/logger"
	"github.com/travelquest/travelquest-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT VISIT SAGA
// Flow: Record Visit → Evaluate Badges → Evaluate Completion →
//
//	Emit Feed Entries → Publish Events
//
// A rejected visit (not found, tier restricted, already visited) stops the
// flow before anything is written. Once the visit exists every later step
// only creates artifacts through insert-if-absent, so a failed run can be
// finished with Reconcile.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitVisitInput contains the visit submission.
type SubmitVisitInput struct {
	User       user.User
	LandmarkID shared.LandmarkID
	Payload    visit.Payload
}

// SubmitVisitResult contains everything the submission created.
type SubmitVisitResult struct {
	Visit      *visit.Visit
	Landmark   *landmark.Landmark
	NewBadges  []command.AwardedBadge
	NewBonuses []*completion.Bonus

	// PointsAwarded is the visit's points plus every new bonus.
	PointsAwarded shared.Points

	FeedEntries int
	ProcessedAt time.Time
}

// HasAwards reports whether any badge or bonus was created.
func (r *SubmitVisitResult) HasAwards() bool {
	return len(r.NewBadges) > 0 || len(r.NewBonuses) > 0
}

// SubmitVisitStep is a step of the flow.
type SubmitVisitStep string

const (
	StepRecordVisit        SubmitVisitStep = "record_visit"
	StepLoadVisit          SubmitVisitStep = "load_visit"
	StepEvaluateBadges     SubmitVisitStep = "evaluate_badges"
	StepEvaluateCompletion SubmitVisitStep = "evaluate_completion"
	StepEmitFeed           SubmitVisitStep = "emit_feed"
	StepPublishEvents      SubmitVisitStep = "publish_events"
	StepComplete           SubmitVisitStep = "complete"
)

// SubmitVisitState tracks one run of the flow.
type SubmitVisitState struct {
	CurrentStep SubmitVisitStep
	Input       SubmitVisitInput
	Visit       *visit.Visit
	Landmark    *landmark.Landmark
	// VisitCreated is false during Reconcile, where the visit already existed.
	VisitCreated bool
	NewBadges    []command.AwardedBadge
	NewBonuses   []*completion.Bonus
	FeedEntries  int
	StartedAt    time.Time
}

// SubmitVisitConfig contains configuration for the saga.
type SubmitVisitConfig struct {
	EnableFeed   bool
	EnableEvents bool
}

// DefaultSubmitVisitConfig returns default configuration.
func DefaultSubmitVisitConfig() SubmitVisitConfig {
	return SubmitVisitConfig{
		EnableFeed:   true,
		EnableEvents: true,
	}
}

// SubmitVisitSaga is the single entry point for visit submissions.
type SubmitVisitSaga struct {
	recorder    *command.RecordVisitHandler
	badges      *command.BadgeEngine
	completions *command.CompletionBonusEngine
	feed        *eventhandler.ActivityFeedEmitter
	visits      visit.Store
	catalog     landmark.Catalog
	eventBus    shared.EventPublisher
	clock       timeutil.Clock
	logger      *slog.Logger
	config      SubmitVisitConfig
}

// NewSubmitVisitSaga creates a new saga with all dependencies.
func NewSubmitVisitSaga(
	recorder *command.RecordVisitHandler,
	badges *command.BadgeEngine,
	completions *command.CompletionBonusEngine,
	feed *eventhandler.ActivityFeedEmitter,
	visits visit.Store,
	catalog landmark.Catalog,
	eventBus shared.EventPublisher,
	clock timeutil.Clock,
	log *slog.Logger,
	config SubmitVisitConfig,
) *SubmitVisitSaga {
	if eventBus == nil {
		eventBus = shared.NoopPublisher{}
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &SubmitVisitSaga{
		recorder:    recorder,
		badges:      badges,
		completions: completions,
		feed:        feed,
		visits:      visits,
		catalog:     catalog,
		eventBus:    eventBus,
		clock:       clock,
		logger:      logger.OrDefault(log).With(logger.Component("submit_visit")),
		config:      config,
	}
}

// SubmitVisit records a visit and awards whatever it unlocks.
// Recording errors are returned unchanged with a nil result. A failure after
// the visit was stored is returned as *SubmitVisitError with VisitRecorded
// set, alongside a result holding the visit and whatever was awarded first.
func (s *SubmitVisitSaga) SubmitVisit(ctx context.Context, input SubmitVisitInput) (*SubmitVisitResult, error) {
	state := &SubmitVisitState{
		CurrentStep: StepRecordVisit,
		Input:       input,
		StartedAt:   s.clock.Now(),
	}

	recorded, err := s.recorder.Handle(ctx, command.RecordVisitCommand{
		User:       input.User,
		LandmarkID: input.LandmarkID,
		Payload:    input.Payload,
	})
	if err != nil {
		return nil, err
	}
	state.Visit = recorded.Visit
	state.Landmark = recorded.Landmark
	state.VisitCreated = true

	err = s.award(ctx, state)
	return s.finish(state), err
}

// Reconcile finishes the awarding for a visit that already exists, typically
// after SubmitVisit timed out or failed past the record step. Only artifacts
// created by this call get feed entries and events. Like SubmitVisit, an
// engine failure returns the partial result together with the error.
func (s *SubmitVisitSaga) Reconcile(ctx context.Context, u user.User, landmarkID shared.LandmarkID) (*SubmitVisitResult, error) {
	state := &SubmitVisitState{
		CurrentStep: StepLoadVisit,
		Input:       SubmitVisitInput{User: u, LandmarkID: landmarkID},
		StartedAt:   s.clock.Now(),
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	v, err := s.visits.Get(ctx, u.ID, landmarkID)
	if err != nil {
		return nil, s.fail(state, err)
	}
	state.Visit = v

	if lm, err := s.catalog.Get(ctx, landmarkID); err == nil {
		state.Landmark = lm
	}

	err = s.award(ctx, state)
	return s.finish(state), err
}

// award runs every step after the visit exists. Artifacts created before an
// engine failure still get their feed entries and events.
func (s *SubmitVisitSaga) award(ctx context.Context, state *SubmitVisitState) error {
	engineErr := s.evaluate(ctx, state)

	state.CurrentStep = StepEmitFeed
	s.stepEmitFeed(ctx, state)

	state.CurrentStep = StepPublishEvents
	s.stepPublishEvents(state)

	if engineErr != nil {
		return engineErr
	}
	state.CurrentStep = StepComplete
	return nil
}

func (s *SubmitVisitSaga) evaluate(ctx context.Context, state *SubmitVisitState) error {
	state.CurrentStep = StepEvaluateBadges
	badges, err := s.badges.EvaluateAndAward(ctx, state.Input.User.ID)
	state.NewBadges = badges
	if err != nil {
		return s.fail(state, err)
	}

	state.CurrentStep = StepEvaluateCompletion
	bonuses, err := s.completions.EvaluateAndAward(ctx, state.Input.User, state.Visit.LandmarkID)
	state.NewBonuses = bonuses
	if err != nil {
		return s.fail(state, err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SAGA STEPS
// ══════════════════════════════════════════════════════════════════════════════

// stepEmitFeed appends one entry per new artifact. Non-critical: failures are logged.
func (s *SubmitVisitSaga) stepEmitFeed(ctx context.Context, state *SubmitVisitState) {
	if !s.config.EnableFeed || s.feed == nil {
		return
	}
	userID := state.Input.User.ID

	var events []eventhandler.FeedEvent
	if state.VisitCreated {
		name := state.Visit.LandmarkID.String()
		if state.Landmark != nil {
			name = state.Landmark.DisplayName()
		}
		events = append(events, eventhandler.VisitRecorded{Visit: state.Visit, LandmarkName: name})
	}
	for _, b := range state.NewBadges {
		events = append(events, eventhandler.BadgeAwarded{Achievement: b.Achievement, BadgeName: b.Rule.Name})
	}
	for _, b := range state.NewBonuses {
		events = append(events, eventhandler.BonusAwarded{Bonus: b})
	}

	for _, ev := range events {
		if _, err := s.feed.Emit(ctx, userID, ev); err != nil {
			s.logger.Error("failed to emit feed entry",
				logger.UserID(userID.String()),
				logger.Err(err),
			)
			continue
		}
		state.FeedEntries++
	}
}

// stepPublishEvents publishes domain events. Non-critical: failures are logged.
func (s *SubmitVisitSaga) stepPublishEvents(state *SubmitVisitState) {
	if !s.config.EnableEvents {
		return
	}
	userID := state.Input.User.ID

	var events []shared.Event
	if state.VisitCreated {
		v := state.Visit
		events = append(events, shared.NewVisitRecordedEvent(userID, v.ID, v.LandmarkID, v.CountryID, v.PointsEarned, v.VisitedAt))
	}
	for _, b := range state.NewBadges {
		events = append(events, shared.NewBadgeAwardedEvent(userID, b.Achievement.BadgeType.String(), b.Achievement.EarnedAt))
	}
	for _, b := range state.NewBonuses {
		events = append(events, shared.NewCompletionAwardedEvent(b.Scope.EventType(), userID, b.Scope.String(), b.ScopeID, b.BonusPoints, b.AwardedAt))
	}

	for _, ev := range events {
		if err := s.eventBus.Publish(ev); err != nil {
			s.logger.Warn("failed to publish event",
				slog.String("event_type", string(ev.EventType())),
				logger.UserID(userID.String()),
				logger.Err(err),
			)
		}
	}
}

func (s *SubmitVisitSaga) finish(state *SubmitVisitState) *SubmitVisitResult {
	result := &SubmitVisitResult{
		Visit:       state.Visit,
		Landmark:    state.Landmark,
		NewBadges:   state.NewBadges,
		NewBonuses:  state.NewBonuses,
		FeedEntries: state.FeedEntries,
		ProcessedAt: s.clock.Now(),
	}
	if state.VisitCreated {
		result.PointsAwarded = state.Visit.PointsEarned
	}
	for _, b := range state.NewBonuses {
		result.PointsAwarded += b.BonusPoints
	}

	msg := "visit processed"
	if state.CurrentStep != StepComplete {
		msg = "visit partially processed"
	}
	s.logger.Info(msg,
		logger.UserID(state.Input.User.ID.String()),
		logger.LandmarkID(state.Visit.LandmarkID.String()),
		logger.Points(result.PointsAwarded.Int()),
		slog.Int("badges", len(result.NewBadges)),
		slog.Int("bonuses", len(result.NewBonuses)),
		slog.Bool("reconciled", !state.VisitCreated),
	)
	return result
}

// fail wraps err with the step it happened at. Errors caused by the request
// log at WARN, everything else at ERROR.
func (s *SubmitVisitSaga) fail(state *SubmitVisitState, err error) error {
	level := slog.LevelError
	if shared.IsClientError(err) {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(context.Background(), level, "submit visit failed",
		logger.UserID(state.Input.User.ID.String()),
		logger.LandmarkID(state.Input.LandmarkID.String()),
		slog.String("step", string(state.CurrentStep)),
		logger.Err(err),
	)
	return &SubmitVisitError{
		Step:          state.CurrentStep,
		VisitRecorded: state.Visit != nil,
		Cause:         err,
		Message:       fmt.Sprintf("submit_visit failed at step %s: %v", state.CurrentStep, err),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR TYPES
// ══════════════════════════════════════════════════════════════════════════════

// SubmitVisitError is returned for failures after input validation.
type SubmitVisitError struct {
	Step          SubmitVisitStep
	VisitRecorded bool
	Cause         error
	Message       string
}

// Error implements the error interface.
func (e *SubmitVisitError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *SubmitVisitError) Unwrap() error {
	return e.Cause
}

// NeedsReconcile reports whether the visit is stored and awarding should be
// finished with Reconcile.
func (e *SubmitVisitError) NeedsReconcile() bool {
	return e.VisitRecorded
}
