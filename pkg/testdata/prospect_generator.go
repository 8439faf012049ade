package testdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/models"
)

// ProspectGeneratorConfig configures prospect generation
type ProspectGeneratorConfig struct {
	Seed          int64
	Count         int
	OwnerID       int
	Territory     string
	AddressChance float64 // 0.0-1.0 (probability of having a street address)
	PhoneChance   float64
	EmailChance   float64
}

// DefaultProspectConfig returns a config where every prospect is routable
func DefaultProspectConfig(ownerID, count int) ProspectGeneratorConfig {
	return ProspectGeneratorConfig{
		Seed:          42,
		Count:         count,
		OwnerID:       ownerID,
		AddressChance: 1,
		PhoneChance:   0.7,
		EmailChance:   0.6,
	}
}

// Generator produces deterministic fake prospects for a seed
type Generator struct {
	faker  *gofakeit.Faker
	config ProspectGeneratorConfig
}

// NewGenerator creates a seeded generator
func NewGenerator(config ProspectGeneratorConfig) *Generator {
	return &Generator{faker: gofakeit.New(config.Seed), config: config}
}

// Prospect creates a single prospect with realistic data
func (g *Generator) Prospect() *models.Prospect {
	f := g.faker
	name := fmt.Sprintf("%s %s", f.Company(), f.CompanySuffix())

	p := &models.Prospect{
		UserID:       g.config.OwnerID,
		BusinessName: name,
		Status:       models.ProspectStatuses[f.Number(0, len(models.ProspectStatuses)-1)],
		Priority:     []models.ProspectPriority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}[f.Number(0, 2)],
		Territory:    g.config.Territory,
		ActivityLog:  []models.ActivityLogEntry{},
	}

	if f.Float64Range(0, 1) < g.config.AddressChance {
		p.Address = fmt.Sprintf("%s, %s, %s %s", f.Street(), f.City(), f.StateAbr(), f.Zip())
	}
	if f.Float64Range(0, 1) < g.config.PhoneChance {
		p.Phone = f.Phone()
	}
	if f.Float64Range(0, 1) < g.config.EmailChance {
		domainPart := strings.ToLower(strings.Join(strings.Fields(name), ""))
		domainPart = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, domainPart)
		if len(domainPart) > 20 {
			domainPart = domainPart[:20]
		}
		p.Email = fmt.Sprintf("contact@%s.com", domainPart)
		p.Website = fmt.Sprintf("https://www.%s.com", domainPart)
	}
	return p
}

// Prospects creates config.Count prospects
func (g *Generator) Prospects() []*models.Prospect {
	out := make([]*models.Prospect, g.config.Count)
	for i := range out {
		out[i] = g.Prospect()
	}
	return out
}

// Scatter returns n coordinates uniformly spread within radius degrees of center
func (g *Generator) Scatter(center models.Coordinate, n int, radius float64) []models.Coordinate {
	out := make([]models.Coordinate, n)
	for i := range out {
		out[i] = models.Coordinate{
			Lng: center.Lng + g.faker.Float64Range(-radius, radius),
			Lat: center.Lat + g.faker.Float64Range(-radius, radius),
		}
	}
	return out
}

// InsertProspects stores prospects through the repository, replacing each
// element with the created row
func InsertProspects(ctx context.Context, repo domain.ProspectRepository, prospects []*models.Prospect) error {
	for i, p := range prospects {
		created, err := repo.Create(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to insert prospect %d: %w", i, err)
		}
		prospects[i] = created
	}
	return nil
}
