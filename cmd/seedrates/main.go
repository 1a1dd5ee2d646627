// cmd/seedrates seeds the rate catalog of a fresh database: a base rate and
// the usual embellishment elements. Existing elements are left alone.
//
// Usage: go run ./cmd/seedrates -base 0.12
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"stitchbill/internal/config"
	"stitchbill/internal/dto"
	"stitchbill/internal/infra"
	"stitchbill/internal/repository"
	"stitchbill/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var defaultElements = []struct {
	name string
	rate string
}{
	{"Sequence", "0.015"},
	{"Borer", "0.020"},
	{"Tilla", "0.030"},
	{"Applique", "0.025"},
	{"Cording", "0.010"},
}

func main() {
	base := flag.String("base", "0.10", "base rate per stitch")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal().Err(err).Msg("failed to read .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	rate, err := decimal.NewFromString(*base)
	if err != nil {
		log.Fatal().Err(err).Str("base", *base).Msg("invalid base rate")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	ctx := context.Background()
	const actor = "seedrates"
	rates := service.NewRateService(repository.NewRateRepository(db), service.NewAuditService(repository.NewAuditRepository(db)), nil)

	if cur, err := rates.CurrentBaseRate(ctx); err == nil {
		log.Info().Str("rate", cur.RatePerStitch.String()).Msg("base rate already set, skipping")
	} else if errors.Is(err, service.ErrNoActiveRate) {
		b, err := rates.SetBaseRate(ctx, actor, dto.SetBaseRateRequest{RatePerStitch: rate})
		if err != nil {
			log.Fatal().Err(err).Msg("set base rate")
		}
		log.Info().Str("rate", b.RatePerStitch.String()).Msg("base rate set")
	} else {
		log.Fatal().Err(err).Msg("read base rate")
	}

	for _, el := range defaultElements {
		_, err := rates.CreateElement(ctx, actor, dto.CreateRateElementRequest{
			Name:          el.name,
			RatePerStitch: decimal.RequireFromString(el.rate),
		})
		switch {
		case errors.Is(err, service.ErrDuplicateElementName):
			log.Info().Str("element", el.name).Msg("exists, skipping")
		case err != nil:
			log.Fatal().Err(err).Str("element", el.name).Msg("create element")
		default:
			log.Info().Str("element", el.name).Str("rate", el.rate).Msg("element created")
		}
	}
}
