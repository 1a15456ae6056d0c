package partsapi

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/angelmondragon/carbuild-backend/pkg/db"
	"github.com/angelmondragon/carbuild-backend/pkg/db/models"
)

//go:embed seed/catalog.yaml
var defaultSeed []byte

type SeedFile struct {
	Vehicles        []SeedVehicle `yaml:"vehicles"`
	UnassignedParts []SeedPart    `yaml:"unassigned_parts"`
}

type SeedVehicle struct {
	Model string     `yaml:"model"`
	Year  int        `yaml:"year"`
	Parts []SeedPart `yaml:"parts"`
}

type SeedPart struct {
	Name      string `yaml:"name"`
	UnitPrice string `yaml:"unit_price"`
}

// SeedResult counts the rows a seed run inserted.
type SeedResult struct {
	Vehicles int
	Parts    int
}

// DefaultSeed returns the catalog bundled with the binary.
func DefaultSeed() (*SeedFile, error) {
	return LoadSeed(bytes.NewReader(defaultSeed))
}

// LoadSeedFile reads a seed file from disk.
func LoadSeedFile(path string) (*SeedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return LoadSeed(f)
}

func LoadSeed(r io.Reader) (*SeedFile, error) {
	var file SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := file.validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *SeedFile) validate() error {
	for i, v := range f.Vehicles {
		if strings.TrimSpace(v.Model) == "" || v.Year <= 0 {
			return fmt.Errorf("seed vehicle %d: model and year are required", i)
		}
		for j, p := range v.Parts {
			if err := p.validate(); err != nil {
				return fmt.Errorf("seed vehicle %s %d part %d: %w", v.Model, v.Year, j, err)
			}
		}
	}
	for i, p := range f.UnassignedParts {
		if err := p.validate(); err != nil {
			return fmt.Errorf("seed unassigned part %d: %w", i, err)
		}
	}
	return nil
}

func (p SeedPart) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(p.UnitPrice))
	if err != nil {
		return fmt.Errorf("invalid unit_price %q", p.UnitPrice)
	}
	if price.IsNegative() {
		return fmt.Errorf("unit_price must not be negative")
	}
	return nil
}

// Seed inserts the vehicles and parts of file that do not exist yet. Running
// it twice inserts nothing the second time.
func (s *Service) Seed(ctx context.Context, file *SeedFile) (SeedResult, error) {
	var result SeedResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, v := range file.Vehicles {
			vehicle, err := repo.FindVehicleByModel(ctx, v.Model, v.Year)
			if db.IsNotFound(err) {
				vehicle = &models.Vehicle{Model: strings.TrimSpace(v.Model), Year: v.Year}
				if err := repo.CreateVehicle(ctx, vehicle); err != nil {
					return fmt.Errorf("create vehicle %s %d: %w", v.Model, v.Year, err)
				}
				result.Vehicles++
			} else if err != nil {
				return err
			}
			for _, p := range v.Parts {
				created, err := seedPart(ctx, repo, p, &vehicle.ID)
				if err != nil {
					return err
				}
				if created {
					result.Parts++
				}
			}
		}
		for _, p := range file.UnassignedParts {
			created, err := seedPart(ctx, repo, p, nil)
			if err != nil {
				return err
			}
			if created {
				result.Parts++
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, dbError(err, "seed catalog")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"vehicles": result.Vehicles,
		"parts":    result.Parts,
	}), "catalog seeded")
	return result, nil
}

func seedPart(ctx context.Context, repo *Repository, p SeedPart, vehicleID *int64) (bool, error) {
	name := strings.TrimSpace(p.Name)
	_, err := repo.FindPartByName(ctx, name, vehicleID)
	if err == nil {
		return false, nil
	}
	if !db.IsNotFound(err) {
		return false, err
	}
	price, err := decimal.NewFromString(strings.TrimSpace(p.UnitPrice))
	if err != nil {
		return false, fmt.Errorf("part %s: invalid unit_price %q", name, p.UnitPrice)
	}
	part := &models.Part{Name: name, UnitPrice: price, VehicleID: vehicleID}
	if err := repo.CreatePart(ctx, part); err != nil {
		return false, fmt.Errorf("create part %s: %w", name, err)
	}
	return true, nil
}
