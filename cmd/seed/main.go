// Commande seed : remplit la base avec le jeu de données de démonstration
// (catégories, utilisateurs, matériel, flight cases, un devis et un événement).
package main

import (
	"log"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/FlexiFlizz/sonphonor/internal/config"
	"github.com/FlexiFlizz/sonphonor/internal/db"
	applog "github.com/FlexiFlizz/sonphonor/internal/logger"
	"github.com/FlexiFlizz/sonphonor/internal/models"
	"github.com/FlexiFlizz/sonphonor/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := applog.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	conn, err := db.ConnectAndMigrate(cfg.DatabaseDSN, cfg.Migrations, logger)
	if err != nil {
		logger.Fatal("connexion base de données", zap.Error(err))
	}

	if err := Seed(conn); err != nil {
		logger.Fatal("seed", zap.Error(err))
	}
	logger.Info("seed terminé",
		zap.String("email", "admin@sonphonor.com"),
		zap.String("password", "admin123"),
	)
}

func mustHash(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

// Seed inserts the demo dataset inside a single transaction.
func Seed(conn *gorm.DB) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		categories := []models.Category{
			{Name: "Microphones", Description: "Microphones filaires et sans fil", Color: "#3b82f6"},
			{Name: "Enceintes", Description: "Enceintes actives et passives", Color: "#22c55e"},
			{Name: "Tables de mixage", Description: "Consoles de mixage analogiques et numériques", Color: "#8b5cf6"},
			{Name: "Amplificateurs", Description: "Amplificateurs de puissance", Color: "#f97316"},
			{Name: "Câbles", Description: "Câbles audio et alimentation", Color: "#64748b"},
			{Name: "Accessoires", Description: "Pieds, supports et accessoires divers", Color: "#ec4899"},
		}
		if err := tx.Create(&categories).Error; err != nil {
			return err
		}

		now := time.Now()
		admin := models.User{
			FirstName: "Admin",
			LastName:  "Sonphonor",
			Email:     "admin@sonphonor.com",
			Password:  mustHash("admin123"),
			Phone:     "06 00 00 00 00",
			Role:      models.RoleAdmin,
			Status:    models.UserActive,
			JoinDate:  now,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		users := []models.User{
			{FirstName: "Jean", LastName: "Dupont", Email: "jean.dupont@email.com", Password: mustHash("password123"), Phone: "06 12 34 56 78", Role: models.RoleMember, Status: models.UserActive, JoinDate: now},
			{FirstName: "Marie", LastName: "Martin", Email: "marie.martin@email.com", Password: mustHash("password123"), Phone: "06 23 45 67 89", Role: models.RoleMember, Status: models.UserActive, JoinDate: now},
			{FirstName: "Pierre", LastName: "Bernard", Email: "pierre.bernard@email.com", Password: mustHash("password123"), Phone: "06 34 56 78 90", Role: models.RoleVolunteer, Status: models.UserActive, JoinDate: now},
		}
		if err := tx.Create(&users).Error; err != nil {
			return err
		}

		equipment := []models.Equipment{
			{Name: "Microphone sans fil Shure SM58", CategoryID: categories[0].ID, Brand: "Shure", Model: "SM58", Quantity: 8, AvailableQuantity: 8, DailyRateHT: 15, Description: "Microphone dynamique professionnel", SerialNumbers: models.SerialNumbers{"SH001", "SH002", "SH003", "SH004", "SH005", "SH006", "SH007", "SH008"}, Condition: models.ConditionExcellent},
			{Name: "Enceinte JBL EON615", CategoryID: categories[1].ID, Brand: "JBL", Model: "EON615", Quantity: 4, AvailableQuantity: 4, DailyRateHT: 80, Description: "Enceinte amplifiée 15\" 1000W", SerialNumbers: models.SerialNumbers{"JBL001", "JBL002", "JBL003", "JBL004"}, Condition: models.ConditionGood},
			{Name: "Console Yamaha MG16XU", CategoryID: categories[2].ID, Brand: "Yamaha", Model: "MG16XU", Quantity: 2, AvailableQuantity: 2, DailyRateHT: 120, Description: "Console 16 canaux avec effets et interface USB", SerialNumbers: models.SerialNumbers{"YAM001", "YAM002"}, Condition: models.ConditionExcellent},
			{Name: "Amplificateur Crown XTi2002", CategoryID: categories[3].ID, Brand: "Crown", Model: "XTi2002", Quantity: 3, AvailableQuantity: 3, DailyRateHT: 60, Description: "Amplificateur 2x800W", SerialNumbers: models.SerialNumbers{"CRW001", "CRW002", "CRW003"}, Condition: models.ConditionGood},
			{Name: "Câble XLR 5m", CategoryID: categories[4].ID, Brand: "Cordial", Model: "CFM5FP", Quantity: 20, AvailableQuantity: 20, DailyRateHT: 3, Description: "Câble XLR mâle/femelle 5m", SerialNumbers: models.SerialNumbers{}, Condition: models.ConditionGood},
			{Name: "Pied de micro", CategoryID: categories[5].ID, Brand: "K&M", Model: "210/9", Quantity: 10, AvailableQuantity: 10, DailyRateHT: 5, Description: "Pied de microphone avec perche télescopique", SerialNumbers: models.SerialNumbers{}, Condition: models.ConditionGood},
		}
		if err := tx.Create(&equipment).Error; err != nil {
			return err
		}

		flightCases := []models.FlightCase{
			{Name: "Flight Microphones", Description: "Flightcase contenant les micros sans fil", Color: "#3b82f6", Items: []models.FlightCaseItem{{EquipmentID: equipment[0].ID, Quantity: 4}}},
			{Name: "Flight Câbles", Description: "Ensemble des câbles XLR et alimentation", Color: "#22c55e", Items: []models.FlightCaseItem{{EquipmentID: equipment[4].ID, Quantity: 10}}},
		}
		if err := tx.Create(&flightCases).Error; err != nil {
			return err
		}

		// Devis exemple : 4 micros × 15 € × 2 jours + 10 câbles × 3 € × 2 jours.
		eventDate := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
		validUntil := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
		svc := services.NewQuoteService()
		lines := []services.LineRequest{
			{EquipmentID: equipment[0].ID, Quantity: 4, Days: 2},
			{EquipmentID: equipment[4].ID, Quantity: 10, Days: 2},
		}
		byID := map[uint]models.Equipment{
			equipment[0].ID: equipment[0],
			equipment[4].ID: equipment[4],
		}
		items, total, taxAmount, err := svc.Price(lines, byID)
		if err != nil {
			return err
		}
		number, err := services.NextQuoteNumber(tx, eventDate.Year())
		if err != nil {
			return err
		}
		quote := models.Quote{
			QuoteNumber: number,
			ClientName:  "Association des Fêtes",
			ClientEmail: "contact@fetes.com",
			ClientPhone: "01 23 45 67 89",
			EventName:   "Concert de printemps",
			EventDate:   eventDate,
			ValidUntil:  validUntil,
			Status:      models.QuoteSent,
			TotalAmount: total,
			TaxAmount:   taxAmount,
			CreatedByID: admin.ID,
			Items:       items,
		}
		if err := tx.Create(&quote).Error; err != nil {
			return err
		}

		event := models.Event{
			Name:        "Concert école de musique",
			Description: "Concert annuel des élèves",
			StartDate:   time.Date(2024, time.June, 10, 18, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2024, time.June, 10, 23, 0, 0, 0, time.UTC),
			Location:    "Salle des fêtes",
			ClientName:  "École de musique",
			ClientEmail: "ecole@musique.com",
			ClientPhone: "01 23 45 67 89",
			Status:      models.EventPlanned,
			CreatedByID: admin.ID,
			EquipmentAssigned: []models.EventEquipmentAssignment{
				{EquipmentID: equipment[1].ID, Quantity: 2, AssignedBy: admin.ID},
				{EquipmentID: equipment[2].ID, Quantity: 1, AssignedBy: admin.ID},
			},
			TechniciansAssigned: []models.EventTechnicianAssignment{
				{UserID: users[0].ID, Role: "Ingénieur son"},
				{UserID: users[1].ID, Role: "Assistant"},
			},
		}
		return tx.Create(&event).Error
	})
}
