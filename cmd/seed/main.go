package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/goldenkiwi/autoparc/backend/internal/config"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
	"github.com/goldenkiwi/autoparc/backend/internal/seed"
	"github.com/goldenkiwi/autoparc/backend/internal/utils"
	"github.com/goldenkiwi/autoparc/backend/internal/validation"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var file string

	flag.IntVar(&op, "op", 0, "opération à exécuter (1: employés aléatoires, 2: opérateurs aléatoires, 3: véhicules aléatoires, 4: attributions aléatoires, 5: import d'un parc CSV)")
	flag.IntVar(&n, "n", 5, "nombre d'enregistrements à insérer")
	flag.StringVar(&file, "file", "", "fichier CSV du parc (par défaut SEED_FLEET_FILE)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// lecture de la configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("impossible de charger la configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// pool de connexions
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("impossible de créer le pool de connexions", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("impossible de joindre la base de données", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)
	ctx = context.Background()

	if op >= 1 && op <= 4 && n <= 0 {
		slog.Error("nombre d'enregistrements invalide", slog.Int("n", n))
		return
	}

	switch op {
	case 0:
		slog.Error("aucune opération indiquée")
	case 1:
		cnt := 0
		for i := 0; i < n; i++ {
			employee, err := utils.GenerateRandomEmployee(cfg.Seed.Employee.Password, cfg.Seed.EmailDomain)
			if err != nil {
				slog.Error("impossible de générer un employé", slog.String("error", err.Error()))
				continue
			}
			if err := repo.CreateEmployee(ctx, employee); err != nil {
				slog.Error("impossible d'insérer l'employé", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}
		slog.Info("employés insérés", slog.Int("count", cnt))
	case 2:
		// employee numbers continue after the operators already present
		total, err := countOperators(ctx, repo)
		if err != nil {
			slog.Error("impossible de compter les opérateurs", slog.String("error", err.Error()))
			return
		}

		cnt := 0
		for i := 1; i <= n; i++ {
			operator := utils.GenerateRandomOperator(total+i, cfg.Seed.EmailDomain)
			if err := repo.CreateOperator(ctx, operator); err != nil {
				slog.Error("impossible d'insérer l'opérateur", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}
		slog.Info("opérateurs insérés", slog.Int("count", cnt))
	case 3:
		cnt := 0
		for i := 0; i < n; i++ {
			car := utils.GenerateRandomCar()
			if err := repo.CreateCar(ctx, car); err != nil {
				slog.Error("impossible d'insérer le véhicule", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}
		slog.Info("véhicules insérés", slog.Int("count", cnt))
	case 4:
		operators, err := repo.ListAvailableOperators(ctx)
		if err != nil {
			slog.Error("impossible de lister les opérateurs disponibles", slog.String("error", err.Error()))
			return
		}
		status := domain.CarStatusActive
		cars, _, err := repo.ListCars(ctx, &domain.CarFilters{Status: &status, Page: 1, Limit: domain.MaxLimit})
		if err != nil {
			slog.Error("impossible de lister les véhicules", slog.String("error", err.Error()))
			return
		}

		today := domain.Today(time.Now(), cfg.Location())
		cnt := 0
		for i := 0; i < len(operators) && i < len(cars) && cnt < n; i++ {
			// skip cars that already have a driver
			if _, err := repo.GetOpenAssignmentByCar(ctx, cars[i].ID); err == nil {
				continue
			}
			start := domain.DateOf(today.AddDate(0, 0, -rand.Intn(180)))
			assignment := &domain.Assignment{
				CarID:      cars[i].ID,
				OperatorID: operators[i].ID,
				StartDate:  start,
			}
			if err := repo.CreateAssignment(ctx, assignment); err != nil {
				slog.Error("impossible d'insérer l'attribution", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}
		slog.Info("attributions insérées", slog.Int("count", cnt))
	case 5:
		if file == "" {
			file = cfg.Seed.FleetFile
		}
		f, err := os.Open(file)
		if err != nil {
			slog.Error("impossible d'ouvrir le fichier", slog.String("file", file), slog.String("error", err.Error()))
			return
		}
		defer f.Close()

		v, err := validation.New(cfg.Location())
		if err != nil {
			slog.Error("impossible de créer le validateur", slog.String("error", err.Error()))
			return
		}

		report, err := seed.ImportFleet(ctx, repo, v, f)
		if err != nil {
			slog.Error("import interrompu", slog.String("error", err.Error()))
			return
		}
		slog.Info("import terminé",
			slog.Int("operators", report.Operators),
			slog.Int("cars", report.Cars),
			slog.Int("assignments", report.Assignments),
			slog.Int("skipped", report.Skipped),
		)
	default:
		slog.Error("opération invalide", slog.Int("op", op))
	}
}

func countOperators(ctx context.Context, repo *repository.Repository) (int, error) {
	_, total, err := repo.ListOperators(ctx, &domain.OperatorFilters{Page: 1, Limit: 1})
	return total, err
}
