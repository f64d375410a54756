package services

import (
	"context"
	"fmt"
	"sort"

	"career-progress-service/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// oracleMinLevel is the level an oracle_mastery badge additionally requires.
const oracleMinLevel = 10

type BadgeService struct {
	DB  *gorm.DB
	Log *zap.Logger
	Hub *ProgressHub
}

func NewBadgeService(db *gorm.DB, log *zap.Logger, hub *ProgressHub) *BadgeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BadgeService{DB: db, Log: log, Hub: hub}
}

// Qualifies reports whether m satisfies b's requirement.
func Qualifies(b models.Badge, m ProgressMetrics) bool {
	switch b.RequirementType {
	case models.RequirementMissions:
		return m.MissionsCompleted >= b.RequirementCount
	case models.RequirementPathsGenerated:
		return m.PathsGenerated >= b.RequirementCount
	case models.RequirementPathsActivated:
		// one-shot requirement, not a threshold
		return m.HasActivePath && b.RequirementCount == 1
	case models.RequirementOracleMastery:
		return m.CurrentLevel >= oracleMinLevel &&
			m.HasUsedAIChat &&
			max(m.ConsecutiveStreakDays, m.LongestStreak) >= b.RequirementCount
	default:
		return false
	}
}

// NewlyQualified returns the catalog badges not in earned that m satisfies,
// ordered by DisplayOrder. Ties keep catalog order.
func NewlyQualified(catalog []models.Badge, earned map[string]struct{}, m ProgressMetrics) []models.Badge {
	ordered := make([]models.Badge, len(catalog))
	copy(ordered, catalog)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DisplayOrder < ordered[j].DisplayOrder
	})

	var out []models.Badge
	for _, b := range ordered {
		if _, ok := earned[b.ID]; ok {
			continue
		}
		if Qualifies(b, m) {
			out = append(out, b)
		}
	}
	return out
}

// Evaluate awards every badge userID newly qualifies for and returns the first
// of them (lowest display order) for celebration, or nil. Any storage error
// aborts the evaluation; it is logged and nil is returned.
func (s *BadgeService) Evaluate(ctx context.Context, userID string) *models.Badge {
	awarded, err := s.evaluate(ctx, userID)
	if err != nil {
		s.Log.Warn("badge evaluation skipped", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if len(awarded) == 0 {
		return nil
	}

	for i := range awarded {
		b := awarded[i]
		s.Hub.Publish(ProgressEvent{Type: EventBadge, UserID: userID, Badge: &b})
		s.Log.Info("🎖️ badge awarded", zap.String("user_id", userID), zap.String("badge_id", b.ID))
	}
	first := awarded[0]
	return &first
}

func (s *BadgeService) evaluate(ctx context.Context, userID string) ([]models.Badge, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	db := s.DB.WithContext(ctx)

	catalog, err := ListCatalog(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, nil
	}

	earned, err := s.EarnedBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics, err := GatherMetrics(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	qualified := NewlyQualified(catalog, earned, metrics)
	if len(qualified) == 0 {
		return nil, nil
	}

	if err := awardBadges(db, userID, qualified); err != nil {
		return nil, err
	}
	return qualified, nil
}

// EarnedBadgeIDs returns the set of badge ids userID already holds.
func (s *BadgeService) EarnedBadgeIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	var ids []string
	if err := s.DB.WithContext(ctx).Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("load earned badges: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// EarnedBadges returns userID's awards with their catalog entries, oldest first.
func (s *BadgeService) EarnedBadges(ctx context.Context, userID string) ([]models.UserBadge, error) {
	var out []models.UserBadge
	if err := s.DB.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("load earned badges: %w", err)
	}
	return out, nil
}

// awardBadges inserts all awards in one statement, skipping pairs that already
// exist. If the driver still reports a duplicate (a concurrent award won the
// race), rows are retried one by one so the remaining awards land.
func awardBadges(db *gorm.DB, userID string, badges []models.Badge) error {
	rows := make([]models.UserBadge, 0, len(badges))
	for _, b := range badges {
		rows = append(rows, models.UserBadge{UserID: userID, BadgeID: b.ID})
	}

	err := db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err == nil {
		return nil
	}
	if !isDuplicateKey(err) {
		return fmt.Errorf("insert user badges: %w", err)
	}

	for _, b := range badges {
		row := models.UserBadge{UserID: userID, BadgeID: b.ID}
		if err := db.Omit(clause.Associations).Create(&row).Error; err != nil && !isDuplicateKey(err) {
			return fmt.Errorf("insert user badge %s: %w", b.ID, err)
		}
	}
	return nil
}
