// Command seeder pre-materializes inventory day rows for every active
// room type across the booking horizon, so availability reads and the
// ledger's range locks work against existing rows instead of lazy
// inserts on the hot path.
package main

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"easybooking/internal/adapters/observability"
	"easybooking/internal/domain"
	"easybooking/internal/shared"
	mysqlstore "easybooking/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)
	log.Info().
		Int("horizon_days", cfg.HorizonDays).
		Int("workers", cfg.SeedWorkers).
		Msg("inventory seeder starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	store := mysqlstore.NewStore(db)
	ledger := mysqlstore.NewLedger(db)

	roomTypes, err := store.ListRoomTypes(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list room types failed")
	}
	log.Info().Int("room_types", len(roomTypes)).Msg("seeding inventory")

	start := domain.Day(time.Now())
	sem := semaphore.NewWeighted(int64(cfg.SeedWorkers))
	var wg sync.WaitGroup

	for _, rt := range roomTypes {
		rt := rt

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(rt domain.RoomTypeConfig) {
			defer wg.Done()
			defer sem.Release(1)

			for i := 0; i < cfg.HorizonDays; i++ {
				date := start.AddDate(0, 0, i)
				if _, err := ledger.GetOrInitDay(ctx, rt.HotelID, rt.RoomTypeID, date); err != nil {
					log.Warn().
						Str("room_type", rt.RoomTypeID).
						Str("date", date.Format(domain.DayFormat)).
						Err(err).
						Msg("seed day failed")
					return
				}
			}
			log.Info().Str("room_type", rt.RoomTypeID).Str("hotel", rt.HotelID).Msg("seed ok")
		}(rt)
	}

	wg.Wait()
	log.Info().Msg("seeding completed")
}
