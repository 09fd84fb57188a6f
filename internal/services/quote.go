package services

import (
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/models"
)

// TaxRate est le taux de TVA appliqué à tous les devis. Taux unique, non
// configurable.
const TaxRate = 0.20

// LineRequest is one requested quote line as received from the client.
type LineRequest struct {
	EquipmentID uint `json:"equipmentId"`
	Quantity    int  `json:"quantity"`
	Days        int  `json:"days"`
}

// EquipmentNotFoundError identifies the offending line; the whole quote
// creation aborts, nothing is persisted.
type EquipmentNotFoundError struct {
	EquipmentID uint
}

func (e *EquipmentNotFoundError) Error() string {
	return fmt.Sprintf("équipement %d non trouvé", e.EquipmentID)
}

// QuoteService encapsule le calcul de tarification des devis.
type QuoteService struct{}

func NewQuoteService() *QuoteService { return &QuoteService{} }

// EquipmentIDs collects the distinct equipment ids referenced by the lines,
// for a single batched lookup by the caller.
func (s *QuoteService) EquipmentIDs(lines []LineRequest) []uint {
	return lo.Uniq(lo.Map(lines, func(l LineRequest, _ int) uint { return l.EquipmentID }))
}

// Price computes the quote lines and totals. The unit price snapshots the
// equipment's current daily rate: later rate changes never alter past quotes.
//
//	totalPrice(line) = dailyRateHT × quantity × days
//	totalAmount      = Σ totalPrice(line)
//	taxAmount        = totalAmount × TaxRate
func (s *QuoteService) Price(lines []LineRequest, equipmentByID map[uint]models.Equipment) (items []models.QuoteItem, totalAmount, taxAmount float64, err error) {
	items = make([]models.QuoteItem, 0, len(lines))
	for _, line := range lines {
		eq, ok := equipmentByID[line.EquipmentID]
		if !ok {
			return nil, 0, 0, &EquipmentNotFoundError{EquipmentID: line.EquipmentID}
		}
		totalPrice := eq.DailyRateHT * float64(line.Quantity) * float64(line.Days)
		items = append(items, models.QuoteItem{
			EquipmentID: line.EquipmentID,
			Quantity:    line.Quantity,
			Days:        line.Days,
			UnitPrice:   eq.DailyRateHT,
			TotalPrice:  totalPrice,
		})
		totalAmount += totalPrice
	}
	taxAmount = totalAmount * TaxRate
	return items, totalAmount, taxAmount, nil
}

// NextQuoteNumber produit un numéro de devis du type DEV-2025-0007, unique
// par an. Appelé dans la transaction de création ; l'index unique sur
// quote_number protège contre une collision concurrente.
func NextQuoteNumber(tx *gorm.DB, year int) (string, error) {
	var count int64
	prefix := fmt.Sprintf("DEV-%d-", year)
	if err := tx.Model(&models.Quote{}).Where("quote_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}
