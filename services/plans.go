package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/utils"
)

const (
	SourceGenerated = "AI-generated"
	SourceDefault   = "default"
)

const planPrompt = `Generate 6 realistic insurance plans for India with the following details:
- Plan name
- Provider company (use real Indian insurance companies)
- Coverage type (Health, Life, Auto, Home, Travel, or Business)
- Premium amount in INR (between 5000 to 50000)
- Coverage amount in INR
- Key features (3-4 points)
- Age group suitability

Return the response as a valid JSON array with this exact structure:
[
  {
    "planName": "string",
    "provider": "string",
    "coverageType": "string",
    "premiumAmount": number,
    "coverageAmount": number,
    "features": ["string", "string", "string"],
    "ageGroup": "string"
  }
]

Make sure all premium amounts are realistic for Indian insurance market.`

// PlanCache stores a generated catalog between requests. utils.RedisPlanCache implements it.
type PlanCache interface {
	Load(ctx context.Context) ([]models.InsurancePlan, bool)
	Store(ctx context.Context, plans []models.InsurancePlan, ttl time.Duration)
}

// RewardsSummary is the caller's rewards as shown next to the catalog.
type RewardsSummary struct {
	Credits    int      `json:"credits"`
	Badges     int      `json:"badges"`
	BadgesList []string `json:"badgesList"`
}

// PlanListing is the priced catalog for one user.
type PlanListing struct {
	Plans       []PricedPlan   `json:"plans"`
	UserRewards RewardsSummary `json:"userRewards"`
	DataSource  string         `json:"dataSource"`
	Timestamp   time.Time      `json:"timestamp"`
}

// PlanService prices the insurance catalog with each user's rewards.
type PlanService struct {
	repo     store.Repository
	gen      TextGenerator
	cache    PlanCache
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewPlanService wires the catalog. gen and cache may be nil.
func NewPlanService(repo store.Repository, gen TextGenerator, cache PlanCache, cacheTTL time.Duration, logger *zap.Logger, m *Metrics) *PlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanService{repo: repo, gen: gen, cache: cache, cacheTTL: cacheTTL, logger: logger, metrics: m, now: time.Now}
}

// Plans returns the catalog priced for userID. A rewards lookup failure prices with zero rewards.
func (s *PlanService) Plans(ctx context.Context, userID string) (*PlanListing, error) {
	rewards, err := s.repo.RewardsFor(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("rewards lookup failed, pricing without rewards", zap.String("user_id", userID), zap.Error(err))
		}
		rewards = models.NewRewards(userID)
	}

	plans, source := s.catalog(ctx)
	s.metrics.observeCatalog(source)

	badges := lo.Ternary(rewards.Badges == nil, []string{}, []string(rewards.Badges))
	return &PlanListing{
		Plans: PricePlans(plans, rewards),
		UserRewards: RewardsSummary{
			Credits:    rewards.Credits,
			Badges:     len(badges),
			BadgesList: badges,
		},
		DataSource: source,
		Timestamp:  s.now().UTC(),
	}, nil
}

func (s *PlanService) catalog(ctx context.Context) ([]models.InsurancePlan, string) {
	if s.cache != nil {
		if plans, ok := s.cache.Load(ctx); ok {
			return plans, SourceGenerated
		}
	}
	if s.gen != nil {
		text, err := s.gen.Generate(ctx, planPrompt)
		if err == nil {
			plans, perr := ParsePlans(text)
			if perr == nil {
				if s.cache != nil {
					s.cache.Store(ctx, plans, s.cacheTTL)
				}
				return plans, SourceGenerated
			}
			err = perr
		}
		s.logger.Warn("plan generation failed, using default catalog", zap.Error(err))
	}
	return DefaultPlans(), SourceDefault
}

// ParsePlans decodes a generated JSON array of plans, tolerating markdown code fences.
// It fails on an empty array or any plan without a name or a positive premium.
func ParsePlans(text string) ([]models.InsurancePlan, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var plans []models.InsurancePlan
	if err := json.Unmarshal([]byte(text), &plans); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	if len(plans) == 0 {
		return nil, errors.New("no plans in response")
	}
	for i := range plans {
		p := &plans[i]
		p.PlanName = utils.SanitizeText(p.PlanName)
		p.Provider = utils.SanitizeText(p.Provider)
		p.CoverageType = utils.SanitizeText(p.CoverageType)
		p.AgeGroup = utils.SanitizeText(p.AgeGroup)
		p.Features = lo.Map(p.Features, func(f string, _ int) string { return utils.SanitizeText(f) })
		if p.PlanName == "" || p.PremiumAmount <= 0 {
			return nil, fmt.Errorf("plan %d is incomplete", i)
		}
	}
	return plans, nil
}

// DefaultPlans is the fixed catalog used when generation is unavailable.
func DefaultPlans() []models.InsurancePlan {
	return []models.InsurancePlan{
		{
			PlanName:       "Health Shield Pro",
			Provider:       "HDFC ERGO",
			CoverageType:   "Health",
			PremiumAmount:  12000,
			CoverageAmount: 500000,
			Features:       []string{"Cashless treatment at 10,000+ hospitals", "Pre-existing diseases covered after 2 years", "Annual health checkup included", "Maternity benefits available"},
			AgeGroup:       "25-60 years",
		},
		{
			PlanName:       "Life Secure Plus",
			Provider:       "LIC India",
			CoverageType:   "Life",
			PremiumAmount:  25000,
			CoverageAmount: 2000000,
			Features:       []string{"Term insurance coverage", "Accidental death benefit", "Tax benefits under 80C", "Flexible premium payment options"},
			AgeGroup:       "21-65 years",
		},
		{
			PlanName:       "Auto Care Complete",
			Provider:       "Bajaj Allianz",
			CoverageType:   "Auto",
			PremiumAmount:  8000,
			CoverageAmount: 300000,
			Features:       []string{"Comprehensive coverage", "Zero depreciation benefit", "24/7 roadside assistance", "Engine protection cover"},
			AgeGroup:       "18+ years",
		},
		{
			PlanName:       "Home Guard Premium",
			Provider:       "ICICI Lombard",
			CoverageType:   "Home",
			PremiumAmount:  15000,
			CoverageAmount: 1000000,
			Features:       []string{"Fire and natural calamity coverage", "Burglary and theft protection", "Earthquake coverage included", "Temporary accommodation expenses"},
			AgeGroup:       "All ages",
		},
		{
			PlanName:       "Travel Safe International",
			Provider:       "Tata AIG",
			CoverageType:   "Travel",
			PremiumAmount:  5000,
			CoverageAmount: 200000,
			Features:       []string{"Medical emergency coverage abroad", "Lost baggage protection", "Flight delay compensation", "COVID-19 coverage included"},
			AgeGroup:       "All ages",
		},
		{
			PlanName:       "Business Protect Suite",
			Provider:       "Reliance General",
			CoverageType:   "Business",
			PremiumAmount:  35000,
			CoverageAmount: 5000000,
			Features:       []string{"Property damage coverage", "Public liability protection", "Business interruption insurance", "Employee accident coverage"},
			AgeGroup:       "Business owners",
		},
	}
}
