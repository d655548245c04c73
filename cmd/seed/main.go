package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/consult-matching/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	caregiverIDs, err := seedCaregivers(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed caregivers: %v", err)
	}
	if err := seedFamilies(context.Background(), pool, caregiverIDs, 4); err != nil {
		log.Fatalf("seed families: %v", err)
	}

	log.Println("seed complete")
}

func seedCaregivers(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d caregivers", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO caregivers (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, email)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("caregivers seeded")
	return ids, nil
}

// seedFamilies creates one family member and one patient per pairing, with
// patientsPer patients assigned to each caregiver.
func seedFamilies(ctx context.Context, pool *pgxpool.Pool, caregiverIDs []uuid.UUID, patientsPer int) error {
	log.Printf("seeding %d patients with family members", len(caregiverIDs)*patientsPer)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, caregiverID := range caregiverIDs {
		for i := 0; i < patientsPer; i++ {
			familyMemberID := uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO family_members (id, name, phone, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, familyMemberID, gofakeit.Name(), gofakeit.Phone())
			if err != nil {
				return err
			}

			patientID := uuid.New()
			_, err = tx.Exec(ctx, `
				INSERT INTO patients (id, name, caregiver_id, family_member_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, patientID, gofakeit.Name(), caregiverID, familyMemberID)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("patients seeded")
	return nil
}
