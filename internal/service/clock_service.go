package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"fieldops-service/internal/gamification"
	"fieldops-service/internal/location"
	"fieldops-service/internal/model"
	"fieldops-service/internal/realtime"
	"fieldops-service/internal/repository"
	"fieldops-service/internal/utils"
)

type ClockService struct {
	entries       *repository.ClockEntryRepository
	ledger        *gamification.Ledger
	notifications *NotificationService
	publisher     *realtime.Publisher
	loc           *time.Location
	log           zerolog.Logger
	now           func() time.Time
}

func NewClockService(
	entries *repository.ClockEntryRepository,
	ledger *gamification.Ledger,
	notifications *NotificationService,
	publisher *realtime.Publisher,
	loc *time.Location,
	log zerolog.Logger,
) *ClockService {
	if loc == nil {
		loc = time.UTC
	}
	return &ClockService{
		entries:       entries,
		ledger:        ledger,
		notifications: notifications,
		publisher:     publisher,
		loc:           loc,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type Coordinates struct {
	Lat *float64
	Lng *float64
}

func (c Coordinates) validate() (bool, error) {
	if c.Lat == nil && c.Lng == nil {
		return false, nil
	}
	if c.Lat == nil || c.Lng == nil {
		return false, invalidInput("lat and lng must be provided together")
	}
	if err := location.ValidateCoordinates(*c.Lat, *c.Lng); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return true, nil
}

type ClockInResult struct {
	Entry  *model.ClockEntry    `json:"entry"`
	Reward *gamification.Result `json:"reward,omitempty"`
}

func (s *ClockService) ClockIn(ctx context.Context, principal model.Principal, coords Coordinates) (*ClockInResult, error) {
	if !principal.IsTechnician() {
		return nil, ErrPermissionDenied
	}
	hasFix, err := coords.validate()
	if err != nil {
		return nil, err
	}

	if _, err := s.entries.GetOpenByUser(ctx, principal.UserID); err == nil {
		return nil, fmt.Errorf("%w: already clocked in", ErrConflict)
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	now := s.now()
	entry := &model.ClockEntry{
		UserID:         principal.UserID,
		ClockIn:        now,
		ApprovalStatus: model.ApprovalStatusPending,
	}
	if hasFix {
		entry.LocationLat = coords.Lat
		entry.LocationLng = coords.Lng
		entry.LastLocationUpdate = &now
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: already clocked in", ErrConflict)
		}
		return nil, err
	}

	s.log.Info().Str("user_id", principal.UserID.String()).Str("clock_entry_id", entry.ID.String()).Msg("clocked in")
	s.publish(ctx, entry, realtime.OpInsert)

	result := &ClockInResult{Entry: entry}
	if s.ledger != nil {
		reward, err := s.ledger.RecordClockIn(ctx, principal.UserID)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", principal.UserID.String()).Msg("failed to record clock-in streak")
		} else {
			result.Reward = &reward
			s.notifications.AnnounceRewards(ctx, principal.UserID, reward)
		}
	}
	return result, nil
}

func (s *ClockService) StartBreak(ctx context.Context, principal model.Principal, id string) (*model.ClockEntry, error) {
	entry, err := s.loadOpen(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if entry.BreakStart != nil {
		return nil, fmt.Errorf("%w: break already taken", ErrConflict)
	}

	now := s.now()
	entry.BreakStart = &now
	return s.save(ctx, entry)
}

func (s *ClockService) EndBreak(ctx context.Context, principal model.Principal, id string) (*model.ClockEntry, error) {
	entry, err := s.loadOpen(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !entry.OnBreak() {
		return nil, fmt.Errorf("%w: not on break", ErrConflict)
	}

	now := s.now()
	entry.BreakEnd = &now
	return s.save(ctx, entry)
}

// ClockOut closes the entry, ending an unfinished break at the same instant.
func (s *ClockService) ClockOut(ctx context.Context, principal model.Principal, id string, coords Coordinates) (*model.ClockEntry, error) {
	hasFix, err := coords.validate()
	if err != nil {
		return nil, err
	}
	entry, err := s.loadOpen(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if entry.OnBreak() {
		entry.BreakEnd = &now
	}
	if hasFix {
		entry.LocationLat = coords.Lat
		entry.LocationLng = coords.Lng
		entry.LastLocationUpdate = &now
	}
	entry.ClockOut = &now
	entry.TotalHours = entry.ComputeTotalHours()

	saved, err := s.save(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", principal.UserID.String()).Str("clock_entry_id", entry.ID.String()).Msg("clocked out")
	return saved, nil
}

func (s *ClockService) UpdateLocation(ctx context.Context, principal model.Principal, id string, lat, lng float64) (*model.ClockEntry, error) {
	if err := location.ValidateCoordinates(lat, lng); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	entry, err := s.loadOpen(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry.LocationLat = &lat
	entry.LocationLng = &lng
	entry.LastLocationUpdate = &now
	return s.save(ctx, entry)
}

type ClockListInput struct {
	UserID string
	Status string
	From   string
	To     string
}

func (s *ClockService) ListMine(ctx context.Context, principal model.Principal, input ClockListInput) ([]model.ClockEntry, error) {
	filter, err := s.parseListInput(input)
	if err != nil {
		return nil, err
	}
	userID := principal.UserID
	filter.UserID = &userID
	return s.entries.List(ctx, filter)
}

func (s *ClockService) ListAll(ctx context.Context, principal model.Principal, input ClockListInput) ([]model.ClockEntry, error) {
	if !principal.CanSchedule() {
		return nil, ErrPermissionDenied
	}
	filter, err := s.parseListInput(input)
	if err != nil {
		return nil, err
	}
	return s.entries.List(ctx, filter)
}

func (s *ClockService) Approve(ctx context.Context, principal model.Principal, id string, comment string) (*model.ClockEntry, error) {
	return s.review(ctx, principal, id, model.ApprovalStatusApproved, strings.TrimSpace(comment))
}

func (s *ClockService) Reject(ctx context.Context, principal model.Principal, id string, comment string) (*model.ClockEntry, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, invalidInput("a rejection comment is required")
	}
	return s.review(ctx, principal, id, model.ApprovalStatusRejected, comment)
}

func (s *ClockService) review(ctx context.Context, principal model.Principal, id string, status model.ApprovalStatus, comment string) (*model.ClockEntry, error) {
	if !principal.CanSchedule() {
		return nil, ErrPermissionDenied
	}
	entryID, err := parseID(id, "clock entry id")
	if err != nil {
		return nil, err
	}
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if entry.IsOpen() || entry.ApprovalStatus != model.ApprovalStatusPending {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	reviewer := principal.UserID
	entry.ApprovalStatus = status
	entry.ApprovedBy = &reviewer
	entry.ApprovedAt = &now
	if comment != "" {
		entry.ApprovalComment = &comment
	}

	saved, err := s.save(ctx, entry)
	if err != nil {
		return nil, err
	}

	day := utils.CalendarDay(entry.ClockIn, s.loc)
	message := fmt.Sprintf("Your timesheet for %s was %s.", day, status)
	if comment != "" {
		message += " " + comment
	}
	s.notifications.notify(ctx, entry.UserID, model.NotificationTypeTimesheet,
		"Timesheet "+string(status), message, nil, &principal.UserID)
	return saved, nil
}

var timesheetHeaders = []string{"Technician", "Date", "Clock In", "Clock Out", "Break (min)", "Total Hours", "Status", "Comment"}

// ExportTimesheet renders the filtered entries as an XLSX workbook.
func (s *ClockService) ExportTimesheet(ctx context.Context, principal model.Principal, input ClockListInput) ([]byte, error) {
	entries, err := s.ListAll(ctx, principal, input)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Timesheet"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, header := range timesheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(timesheetHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	for i, entry := range entries {
		row := i + 2
		values := []interface{}{
			entry.UserID.String(),
			utils.CalendarDay(entry.ClockIn, s.loc),
			entry.ClockIn.In(s.loc).Format("15:04"),
			"",
			int(entry.BreakDuration(s.now()).Minutes()),
			"",
			string(entry.ApprovalStatus),
			"",
		}
		if entry.ClockOut != nil {
			values[3] = entry.ClockOut.In(s.loc).Format("15:04")
			values[4] = int(entry.BreakDuration(*entry.ClockOut).Minutes())
		}
		if entry.TotalHours != nil {
			values[5] = *entry.TotalHours
		}
		if entry.ApprovalComment != nil {
			values[7] = *entry.ApprovalComment
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "H", "H", 40)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write timesheet workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ClockService) parseListInput(input ClockListInput) (repository.ClockEntryListFilter, error) {
	var filter repository.ClockEntryListFilter

	if strings.TrimSpace(input.UserID) != "" {
		userID, err := parseID(input.UserID, "user_id")
		if err != nil {
			return filter, err
		}
		filter.UserID = &userID
	}
	if strings.TrimSpace(input.Status) != "" {
		status := model.ApprovalStatus(strings.TrimSpace(input.Status))
		switch status {
		case model.ApprovalStatusPending, model.ApprovalStatusApproved, model.ApprovalStatusRejected:
			filter.ApprovalStatus = &status
		default:
			return filter, invalidInput("unknown approval status %q", input.Status)
		}
	}
	if strings.TrimSpace(input.From) != "" {
		from, err := parseDay(input.From, s.loc)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if strings.TrimSpace(input.To) != "" {
		to, err := parseDay(input.To, s.loc)
		if err != nil {
			return filter, err
		}
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	return filter, nil
}

// parseDay accepts a calendar day and returns its start in loc.
func parseDay(raw string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(utils.CalendarDayLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, invalidInput("dates must use YYYY-MM-DD")
	}
	return day, nil
}

func (s *ClockService) loadOpen(ctx context.Context, principal model.Principal, id string) (*model.ClockEntry, error) {
	entryID, err := parseID(id, "clock entry id")
	if err != nil {
		return nil, err
	}
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if entry.UserID != principal.UserID {
		return nil, ErrPermissionDenied
	}
	if !entry.IsOpen() {
		return nil, fmt.Errorf("%w: already clocked out", ErrConflict)
	}
	return entry, nil
}

func (s *ClockService) save(ctx context.Context, entry *model.ClockEntry) (*model.ClockEntry, error) {
	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, mapRepoError(err)
	}
	s.publish(ctx, entry, realtime.OpUpdate)
	return entry, nil
}

func (s *ClockService) publish(ctx context.Context, entry *model.ClockEntry, op realtime.ChangeOp) {
	s.publisher.PublishChange(ctx, realtime.ChangeEvent{
		Table: "clock_entries",
		Op:    op,
		ID:    entry.ID,
	}, entry.UserID)
}

// OpenEntry returns the caller's open clock entry.
func (s *ClockService) OpenEntry(ctx context.Context, principal model.Principal) (*model.ClockEntry, error) {
	entry, err := s.entries.GetOpenByUser(ctx, principal.UserID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return entry, nil
}
