package service

import (
	"fmt"

	"littletoes/internal/models"
	"littletoes/internal/repository"

	"github.com/rs/zerolog/log"
)

// CurriculumService loads curriculum units from the store and caches them
// in memory. Units are static configuration: loaded once, never mutated.
type CurriculumService struct {
	unitRepo *repository.UnitRepository
	units    []models.Unit
	byID     map[int64]*models.Unit
}

// NewCurriculumService creates a new curriculum service
func NewCurriculumService(unitRepo *repository.UnitRepository) *CurriculumService {
	return &CurriculumService{
		unitRepo: unitRepo,
		byID:     make(map[int64]*models.Unit),
	}
}

// SeedDefaultUnits creates the default curriculum if the store is empty.
// Unit 1 carries the fixed question set; units 2-40 get generic questions
// so every unit in the picker is usable.
func (s *CurriculumService) SeedDefaultUnits() error {
	count, err := s.unitRepo.CountUnits()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	unit1 := models.Unit{
		ID:    1,
		Title: "Unit 1",
		Prompts: []models.Prompt{
			{Text: "How old are you?", Hint: "I am..."},
			{Text: "What color is the house?", Hint: "The house is..."},
			{Text: "What is your mom's name?", Hint: "My mom's name is..."},
			{Text: "What is your dad's name?", Hint: "My dad's name is..."},
		},
	}
	if err := s.unitRepo.CreateUnit(unit1); err != nil {
		return fmt.Errorf("failed to seed unit 1: %w", err)
	}

	for unitID := int64(2); unitID <= 40; unitID++ {
		unit := models.Unit{
			ID:      unitID,
			Title:   fmt.Sprintf("Unit %d", unitID),
			Prompts: genericPrompts(unitID),
		}
		if err := s.unitRepo.CreateUnit(unit); err != nil {
			return fmt.Errorf("failed to seed unit %d: %w", unitID, err)
		}
	}

	log.Info().Int("units", 40).Msg("seeded default curriculum")
	return nil
}

// genericPrompts builds placeholder questions for units without bespoke content
func genericPrompts(unitID int64) []models.Prompt {
	return []models.Prompt{
		{Text: fmt.Sprintf("Unit %d: What is your favorite animal?", unitID), Hint: "My favorite animal is..."},
		{Text: fmt.Sprintf("Unit %d: What do you like to eat?", unitID), Hint: "I like to eat..."},
		{Text: fmt.Sprintf("Unit %d: Can you swim?", unitID), Hint: "Yes, I can / No, I cannot"},
	}
}

// LoadAll reads every unit into the in-memory cache
func (s *CurriculumService) LoadAll() error {
	units, err := s.unitRepo.GetAllUnits()
	if err != nil {
		return fmt.Errorf("failed to load curriculum: %w", err)
	}

	s.units = units
	s.byID = make(map[int64]*models.Unit, len(units))
	for i := range s.units {
		s.byID[s.units[i].ID] = &s.units[i]
	}

	log.Info().Int("units", len(units)).Msg("curriculum loaded")
	return nil
}

// Units returns all cached units
func (s *CurriculumService) Units() []models.Unit {
	return s.units
}

// UnitByID returns the cached unit with the given ID, or nil
func (s *CurriculumService) UnitByID(unitID int64) *models.Unit {
	return s.byID[unitID]
}
