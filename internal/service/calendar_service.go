package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

// maxWindowDays bounds a single calendar listing.
const maxWindowDays = 366

type generationNotifier interface {
	Notify(from, to time.Time) bool
}

// CalendarConfig configures calendar listing.
type CalendarConfig struct {
	Location  *time.Location
	Lookahead time.Duration
	AgendaTTL time.Duration
}

// CalendarService serves calendar windows and day agendas.
type CalendarService struct {
	occurrences occurrenceReader
	trigger     generationNotifier
	cache       *CacheService
	logger      *zap.Logger
	cfg         CalendarConfig
}

// NewCalendarService constructs the service. trigger may be nil, in which case navigation
// never schedules generation.
func NewCalendarService(occurrences occurrenceReader, trigger generationNotifier, cache *CacheService, logger *zap.Logger, cfg CalendarConfig) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &CalendarService{occurrences: occurrences, trigger: trigger, cache: cache, logger: logger, cfg: cfg}
}

// Location returns the timezone calendar dates are interpreted in.
func (s *CalendarService) Location() *time.Location {
	return s.cfg.Location
}

// ParseDate parses a YYYY-MM-DD date as local midnight.
func (s *CalendarService) ParseDate(value string) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, value, s.cfg.Location)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "dates must use YYYY-MM-DD")
	}
	return day, nil
}

// Window lists lessons for the inclusive date range and asks the trigger to fill the range
// plus the lookahead margin.
func (s *CalendarService) Window(ctx context.Context, fromDate, toDate string) (*models.CalendarWindow, error) {
	from, err := s.ParseDate(fromDate)
	if err != nil {
		return nil, err
	}
	to, err := s.ParseDate(toDate)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if to.Sub(from) > maxWindowDays*24*time.Hour {
		return nil, appErrors.Clone(appErrors.ErrValidation, "calendar window is limited to one year")
	}
	end := to.AddDate(0, 0, 1)

	generating := false
	if s.trigger != nil {
		generating = s.trigger.Notify(from, end.Add(s.cfg.Lookahead))
	}

	items, err := s.occurrences.Query(ctx, models.OccurrenceFilter{After: &from, Before: &end})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	if items == nil {
		items = []models.Occurrence{}
	}
	return &models.CalendarWindow{From: fromDate, To: toDate, Occurrences: items, Generating: generating}, nil
}

// DayAgenda returns the lessons of one day with their column layout.
func (s *CalendarService) DayAgenda(ctx context.Context, date string) (*models.DayAgenda, error) {
	day, err := s.ParseDate(date)
	if err != nil {
		return nil, err
	}
	key := agendaCacheKey(date)
	var cached models.DayAgenda
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	end := day.AddDate(0, 0, 1)
	items, err := s.occurrences.Query(ctx, models.OccurrenceFilter{After: &day, Before: &end})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day")
	}
	positions := LayoutDay(items)
	agenda := &models.DayAgenda{
		Date:     date,
		Timezone: s.cfg.Location.String(),
		Items:    make([]models.AgendaItem, 0, len(items)),
	}
	for _, occ := range items {
		pos, ok := positions[occ.ID]
		if !ok {
			continue
		}
		agenda.Items = append(agenda.Items, models.AgendaItem{Occurrence: occ, Layout: pos})
	}
	s.cache.Set(ctx, key, agenda, s.cfg.AgendaTTL)
	return agenda, nil
}
