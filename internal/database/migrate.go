package database

import (
    "fmt"
    "log"

    "TractorMandi/internal/models"
)

func Migrate() error {
    log.Println("Running database migrations...")

    err := DB.AutoMigrate(
        &models.User{},
        &models.Vehicle{},
        &models.Auction{},
        &models.Bid{},
        &models.Deposit{},
        &models.Purchase{},
        &models.Escrow{},
        &models.AuditRecord{},
        &models.Notification{},
    )

    if err != nil {
        log.Printf("Error migrating database: %v", err)
        return fmt.Errorf("failed to migrate database: %w", err)
    }

    log.Println("Database migration completed successfully")
    return nil
}
