package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

// GenerationResult summarises one generator run.
type GenerationResult struct {
	Definitions int `json:"definitions"`
	Created     int `json:"created"`
	Skipped     int `json:"skipped"`
}

// SyncResult summarises a template reconciliation.
type SyncResult struct {
	Updated int              `json:"updated"`
	Deleted int              `json:"deleted"`
	Created GenerationResult `json:"created"`
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	Location  *time.Location
	Lookahead time.Duration
	Now       func() time.Time
}

// ScheduleGeneratorService expands weekly templates into concrete lessons.
type ScheduleGeneratorService struct {
	occurrences occurrenceStore
	dispatcher  *commandDispatcher
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	location    *time.Location
	lookahead   time.Duration
	now         func() time.Time
}

// NewScheduleGeneratorService wires generator dependencies.
func NewScheduleGeneratorService(
	occurrences occurrenceStore,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = 6 * 7 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ScheduleGeneratorService{
		occurrences: occurrences,
		dispatcher:  newCommandDispatcher(occurrences, logger),
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		location:    cfg.Location,
		lookahead:   cfg.Lookahead,
		now:         cfg.Now,
	}
}

// Lookahead returns the margin generated past a visible window.
func (s *ScheduleGeneratorService) Lookahead() time.Duration {
	return s.lookahead
}

// EnsureScheduleInRange creates every missing lesson starting in [from, to). Existing lessons,
// cancelled ones included, are never touched. A persistence error aborts the run; lessons
// created before the failure are kept and the next run completes the window.
func (s *ScheduleGeneratorService) EnsureScheduleInRange(ctx context.Context, defs []models.ScheduleDefinition, from, to time.Time) (GenerationResult, error) {
	result := GenerationResult{}
	if !from.Before(to) {
		return result, appErrors.Clone(appErrors.ErrValidation, "generation window must end after it starts")
	}
	started := time.Now()
	for i := range defs {
		def := &defs[i]
		if def.ProjectType != "" && def.ProjectType != models.ProjectTypeStudent {
			continue
		}
		result.Definitions++
		created, skipped, err := s.ensureDefinition(ctx, def, from, to)
		result.Created += created
		result.Skipped += skipped
		if err != nil {
			s.metrics.RecordGenerationRun("failed", time.Since(started))
			s.logger.Error("schedule generation aborted",
				zap.String("project_id", def.ID),
				zap.Time("from", from),
				zap.Time("to", to),
				zap.Int("created", result.Created),
				zap.Error(err),
			)
			s.invalidateAgenda(ctx, result.Created)
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate lessons")
		}
	}
	s.metrics.RecordGenerationRun("ok", time.Since(started))
	s.metrics.AddOccurrencesCreated(result.Created)
	s.invalidateAgenda(ctx, result.Created)
	if result.Created > 0 {
		s.logger.Info("lessons generated",
			zap.Int("definitions", result.Definitions),
			zap.Int("created", result.Created),
			zap.Time("from", from),
			zap.Time("to", to),
		)
	}
	return result, nil
}

func (s *ScheduleGeneratorService) ensureDefinition(ctx context.Context, def *models.ScheduleDefinition, from, to time.Time) (int, int, error) {
	if len(def.ScheduleTemplate) == 0 {
		return 0, 0, nil
	}
	template := def.ScheduleTemplate.Keyed(nil)
	firstDay := startOfDay(from, s.location)
	lastDay := startOfDay(to, s.location).AddDate(0, 0, 1)

	existing, err := s.occurrences.Query(ctx, models.OccurrenceFilter{
		ProjectID:       def.ID,
		IsAutoGenerated: boolPtr(true),
		DateFrom:        firstDay.Format(dateLayout),
		DateTo:          lastDay.Format(dateLayout),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("load existing lessons: %w", err)
	}
	byDate := lessonsByDate(existing)
	now := s.now()

	created, skipped := 0, 0
	for day := firstDay; day.Before(to); day = day.AddDate(0, 0, 1) {
		if !s.covers(def, day) {
			continue
		}
		slots := template.ForDay(day.Weekday())
		if len(slots) == 0 {
			continue
		}
		date := day.Format(dateLayout)
		claims := claimSlots(slots, byDate[date], now, s.location)
		for _, slot := range slots {
			start, err := s.slotStart(day, slot)
			if err != nil {
				s.logger.Warn("skipping malformed template slot", zap.String("project_id", def.ID), zap.Int("slot", slot.Key), zap.Error(err))
				continue
			}
			if start.Before(from) || !start.Before(to) {
				continue
			}
			if claims.taken(slot.Key) {
				skipped++
				continue
			}
			slotKey := slot.Key
			occurrenceDate := date
			startUTC := start.UTC()
			occ := &models.Occurrence{
				ProjectID:       def.ID,
				Title:           def.Name,
				StartTime:       &startUTC,
				Duration:        slot.EffectiveDuration(),
				Status:          models.OccurrenceStatusScheduled,
				IsAutoGenerated: true,
				SlotKey:         &slotKey,
				OccurrenceDate:  &occurrenceDate,
			}
			inserted, err := s.occurrences.Create(ctx, occ)
			if err != nil {
				return created, skipped, fmt.Errorf("create lesson %s slot %d: %w", date, slot.Key, err)
			}
			claims.bySlot[slot.Key] = occ
			if inserted {
				created++
			} else {
				skipped++
			}
		}
	}
	return created, skipped, nil
}

// SyncProjectSchedule reconciles generated lessons from today on with an edited template and
// then fills the lookahead window. Lessons are matched to slots per date by slot key, then by
// start time. Past, makeup, cancelled and user-moved lessons are never changed but still hold
// their slot, so homework checks stay put and a cancelled date is not regenerated.
func (s *ScheduleGeneratorService) SyncProjectSchedule(ctx context.Context, def *models.ScheduleDefinition) (SyncResult, error) {
	result := SyncResult{}
	if def == nil {
		return result, appErrors.Clone(appErrors.ErrValidation, "schedule definition is required")
	}
	now := s.now()
	lessons, err := s.occurrences.Query(ctx, models.OccurrenceFilter{
		ProjectID:       def.ID,
		IsAutoGenerated: boolPtr(true),
		DateFrom:        startOfDay(now, s.location).Format(dateLayout),
	})
	if err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load future lessons")
	}

	template := def.ScheduleTemplate.Keyed(nil)
	byDate := lessonsByDate(lessons)
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		day, err := time.ParseInLocation(dateLayout, date, s.location)
		if err != nil {
			s.logger.Warn("lessons have malformed occurrence date", zap.String("project_id", def.ID), zap.String("date", date), zap.Error(err))
			continue
		}
		var slots []models.TemplateSlot
		if s.covers(def, day) {
			slots = template.ForDay(day.Weekday())
		}
		claims := claimSlots(slots, byDate[date], now, s.location)

		for _, occ := range claims.unmatched {
			if !reconcilable(occ, now) {
				continue
			}
			if err := s.occurrences.Delete(ctx, occ.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
				return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove lesson for dropped slot")
			}
			result.Deleted++
		}
		for _, slot := range slots {
			occ, ok := claims.bySlot[slot.Key]
			if !ok || !reconcilable(occ, now) {
				continue
			}
			start, err := s.slotStart(day, slot)
			if err != nil {
				continue
			}
			if start.Equal(*occ.StartTime) && occ.Duration == slot.EffectiveDuration() {
				continue
			}
			cmd := RescheduleCommand{OccurrenceID: occ.ID, StartTime: start.UTC(), Duration: slot.EffectiveDuration()}
			if err := s.dispatcher.Dispatch(ctx, cmd); err != nil {
				return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move lesson to new slot time")
			}
			result.Updated++
		}
	}
	if result.Updated > 0 || result.Deleted > 0 {
		s.invalidateAgenda(ctx, 1)
	}

	created, err := s.EnsureScheduleInRange(ctx, []models.ScheduleDefinition{*def}, now, now.Add(s.lookahead))
	result.Created = created
	if err != nil {
		return result, err
	}
	s.logger.Info("schedule reconciled",
		zap.String("project_id", def.ID),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Int("created", created.Created),
	)
	return result, nil
}

func reconcilable(occ *models.Occurrence, now time.Time) bool {
	if occ.StartTime == nil || !occ.StartTime.After(now) {
		return false
	}
	if !occ.IsAutoGenerated || occ.IsMakeup || occ.Cancelled() || occ.IsModified {
		return false
	}
	return occ.SlotKey != nil && occ.OccurrenceDate != nil
}

func (s *ScheduleGeneratorService) covers(def *models.ScheduleDefinition, day time.Time) bool {
	if !def.StartDate.IsZero() && day.Before(calendarDate(def.StartDate, s.location)) {
		return false
	}
	if def.EndDate != nil && day.After(calendarDate(*def.EndDate, s.location)) {
		return false
	}
	return true
}

func (s *ScheduleGeneratorService) slotStart(day time.Time, slot models.TemplateSlot) (time.Time, error) {
	hour, minute, err := slot.Clock()
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, s.location), nil
}

func (s *ScheduleGeneratorService) invalidateAgenda(ctx context.Context, changed int) {
	if changed == 0 {
		return
	}
	_ = s.cache.Invalidate(ctx, agendaCachePattern)
}
