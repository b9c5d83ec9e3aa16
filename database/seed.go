package database

import (
	"fmt"
	"restaurant_manager/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var seedMenu = []model.MenuItem{
	{ID: "pho-bo", Name: "Phở bò", Price: 65000, Category: "Món chính", Available: true},
	{ID: "bun-cha", Name: "Bún chả", Price: 60000, Category: "Món chính", Available: true},
	{ID: "com-tam", Name: "Cơm tấm", Price: 55000, Category: "Món chính", Available: true},
	{ID: "goi-cuon", Name: "Gỏi cuốn", Price: 40000, Category: "Khai vị", Available: true},
	{ID: "cha-gio", Name: "Chả giò", Price: 45000, Category: "Khai vị", Available: true},
	{ID: "tra-da", Name: "Trà đá", Price: 5000, Category: "Đồ uống", Available: true},
	{ID: "ca-phe-sua", Name: "Cà phê sữa đá", Price: 30000, Category: "Đồ uống", Available: true},
	{ID: "che-ba-mau", Name: "Chè ba màu", Price: 25000, Category: "Tráng miệng", Available: true},
}

// SeedData creates the floor plan and a starter menu on an empty database.
func SeedData(db *gorm.DB, tables int, log logrus.FieldLogger) {
	var count int64
	if err := db.Model(&model.Table{}).Count(&count).Error; err != nil {
		log.WithError(err).Warn("failed to count tables")
		return
	}
	if count == 0 {
		for i := 1; i <= tables; i++ {
			n := i
			table := model.Table{
				UUID:   uuid.NewString(),
				Number: &n,
				Name:   fmt.Sprintf("Bàn %d", i),
				Seats:  4,
			}
			if err := db.Create(&table).Error; err != nil {
				log.WithError(err).WithField("table", table.Name).Warn("failed to seed table")
			}
		}
	}

	for _, item := range seedMenu {
		item := item
		if err := db.Where(model.MenuItem{ID: item.ID}).FirstOrCreate(&item).Error; err != nil {
			log.WithError(err).WithField("item", item.ID).Warn("failed to seed menu item")
		}
	}
}
