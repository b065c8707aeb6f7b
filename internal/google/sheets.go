package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"roombook/internal/config"
	"roombook/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	lastColumn     = "J"
	timestampStyle = "2006-01-02 15:04:05"
)

var (
	errRowNotFound = errors.New("reservation row not found")

	header = []interface{}{"ID", "Room ID", "Slot ID", "Owner ID", "Date", "Slot", "Purpose", "Attendees", "Created At", "Updated At"}

	rowInRange = regexp.MustCompile(`![A-Z]+(\d+)`)
)

// ReservationsSheet mirrors reservations into one sheet of a spreadsheet,
// one row per reservation keyed by the ID in column A.
type ReservationsSheet struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        zerolog.Logger

	cacheMu  sync.RWMutex
	rowCache map[int64]int
}

// NewReservationsSheet authenticates with a service account key file.
func NewReservationsSheet(ctx context.Context, cfg config.GoogleConfig, logger *zerolog.Logger) (*ReservationsSheet, error) {
	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newReservationsSheet(srv, cfg.ReservationsSpreadsheetID, cfg.ReservationsSheetName, logger), nil
}

func newReservationsSheet(srv *sheets.Service, spreadsheetID, sheetName string, logger *zerolog.Logger) *ReservationsSheet {
	if sheetName == "" {
		sheetName = "Reservations"
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "sheets").Logger()
	}
	return &ReservationsSheet{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        l,
		rowCache:      make(map[int64]int),
	}
}

// TestConnection reads the header cell.
func (s *ReservationsSheet) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// StartCacheRefresh warms the row index now and then every interval until
// ctx is done.
func (s *ReservationsSheet) StartCacheRefresh(ctx context.Context, interval time.Duration) {
	refresh := func() {
		c, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.WarmUpCache(c); err != nil {
			s.logger.Warn().Err(err).Msg("row cache refresh failed")
		}
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// WarmUpCache rebuilds the row index from column A.
func (s *ReservationsSheet) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	cache := make(map[int64]int, len(resp.Values))
	for i, row := range resp.Values {
		if id := cellID(row); id > 0 {
			cache[id] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

// UpsertReservation rewrites the reservation's row or appends a new one.
func (s *ReservationsSheet) UpsertReservation(ctx context.Context, r *models.Reservation) error {
	if r == nil {
		return errors.New("reservation is nil")
	}

	rowIdx, err := s.FindReservationRow(ctx, r.ID)
	if errors.Is(err, errRowNotFound) {
		return s.appendReservation(ctx, r)
	}
	if err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", s.sheetName, rowIdx, lastColumn, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]interface{}{rowValues(r)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *ReservationsSheet) appendReservation(ctx context.Context, r *models.Reservation) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{rowValues(r)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return err
	}

	if resp.Updates != nil {
		if m := rowInRange.FindStringSubmatch(resp.Updates.UpdatedRange); m != nil {
			if row, err := strconv.Atoi(m[1]); err == nil {
				s.setCachedRow(r.ID, row)
			}
		}
	}
	return nil
}

// DeleteReservation clears the reservation's row. A row that is already gone
// counts as deleted.
func (s *ReservationsSheet) DeleteReservation(ctx context.Context, reservationID int64) error {
	rowIdx, err := s.FindReservationRow(ctx, reservationID)
	if errors.Is(err, errRowNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", s.sheetName, rowIdx, lastColumn, rowIdx)
	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return err
	}
	s.deleteCachedRow(reservationID)
	return nil
}

// ReplaceAll rewrites the whole sheet from the given reservations.
func (s *ReservationsSheet) ReplaceAll(ctx context.Context, list []*models.Reservation) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.sheetName+"!A:"+lastColumn, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(list)+1)
	values = append(values, header)
	cache := make(map[int64]int, len(list))
	for i, r := range list {
		values = append(values, rowValues(r))
		cache[r.ID] = i + 2
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.sheetName+"!A1", &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	s.logger.Info().Int("rows", len(list)).Msg("reservations sheet replaced")
	return nil
}

// FindReservationRow returns the 1-based row of reservationID, scanning
// column A on a cache miss.
func (s *ReservationsSheet) FindReservationRow(ctx context.Context, reservationID int64) (int, error) {
	if reservationID == 0 {
		return 0, errors.New("reservation id is required")
	}
	if row, ok := s.getCachedRow(reservationID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if cellID(row) == reservationID {
			s.setCachedRow(reservationID, i+1)
			return i + 1, nil
		}
	}
	return 0, errRowNotFound
}

func (s *ReservationsSheet) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *ReservationsSheet) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *ReservationsSheet) deleteCachedRow(id int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}

// cellID reads a reservation id from the first cell; the API returns numbers
// as float64 or as strings depending on the render option.
func cellID(row []interface{}) int64 {
	if len(row) == 0 {
		return 0
	}
	switch v := row[0].(type) {
	case float64:
		return int64(v)
	case string:
		id, _ := strconv.ParseInt(v, 10, 64)
		return id
	}
	return 0
}

func rowValues(r *models.Reservation) []interface{} {
	slot := ""
	if r.Slot != nil {
		slot = r.Slot.String()
	}
	return []interface{}{
		r.ID,
		r.RoomID,
		r.SlotID,
		r.OwnerID,
		r.Date.Format(models.DateLayout),
		slot,
		r.Purpose,
		r.AttendeeCount,
		r.CreatedAt.Format(timestampStyle),
		r.UpdatedAt.Format(timestampStyle),
	}
}
