package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"roombook/internal/models"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v2"
)

// Sheet names read from an XLSX catalog. The first row of each is a header.
const (
	SheetRooms     = "Rooms"
	SheetTimeSlots = "TimeSlots"
	SheetUsers     = "Users"
)

// Catalog is the seed data for rooms, time slots and users.
type Catalog struct {
	Rooms     []models.Room `yaml:"rooms"`
	TimeSlots []SlotSeed    `yaml:"time_slots"`
	Users     []models.User `yaml:"users"`
}

// SlotSeed is a time slot as written by hand: "monday", "09:00", "10:30".
type SlotSeed struct {
	Day   string `yaml:"day"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// TimeSlot parses the seed into a slot.
func (s SlotSeed) TimeSlot() (models.TimeSlot, error) {
	day, err := models.ParseDayOfWeek(s.Day)
	if err != nil {
		return models.TimeSlot{}, err
	}
	start, err := models.ParseTimeOfDay(s.Start)
	if err != nil {
		return models.TimeSlot{}, err
	}
	end, err := models.ParseTimeOfDay(s.End)
	if err != nil {
		return models.TimeSlot{}, err
	}
	slot := models.TimeSlot{DayOfWeek: day, StartTime: start, EndTime: end}
	return slot, slot.Validate()
}

// Load reads a catalog from a .yaml/.yml or .xlsx file.
func Load(path string) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".xlsx":
		return LoadXLSX(path)
	}
	return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
}

func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &cat, nil
}

func LoadXLSX(path string) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	var cat Catalog

	rows, err := sheetRows(f, SheetRooms)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		capacity, err := strconv.Atoi(cell(row, 1))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid capacity %q", SheetRooms, i+2, cell(row, 1))
		}
		hasComputers, err := parseFlag(cell(row, 2))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetRooms, i+2, err)
		}
		cat.Rooms = append(cat.Rooms, models.Room{Name: cell(row, 0), Capacity: capacity, HasComputers: hasComputers})
	}

	rows, err = sheetRows(f, SheetTimeSlots)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		cat.TimeSlots = append(cat.TimeSlots, SlotSeed{Day: cell(row, 0), Start: cell(row, 1), End: cell(row, 2)})
	}

	rows, err = sheetRows(f, SheetUsers)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		cat.Users = append(cat.Users, models.User{Email: cell(row, 0), Name: cell(row, 1), Role: strings.ToUpper(cell(row, 2))})
	}

	return &cat, nil
}

// sheetRows returns the non-empty data rows of sheet, without the header.
// A missing sheet has no rows.
func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	out := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if cell(row, 0) == "" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFlag(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "", "no", "n", "нет":
		return false, nil
	case "yes", "y", "да":
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid flag %q", v)
	}
	return b, nil
}
