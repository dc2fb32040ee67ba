package repositories

import (
	"context"
	"fmt"

	"clubledger/internal/models"

	"gorm.io/gorm"
)

// ClubRepository answers the membership questions the ledger consumes,
// reading the membership subsystem's tables without writing to them.
type ClubRepository struct {
	db           *gorm.DB
	officerRoles []string
}

func NewClubRepository(db *gorm.DB, officerRoles []string) *ClubRepository {
	return &ClubRepository{db: db, officerRoles: officerRoles}
}

func (r *ClubRepository) ClubExists(ctx context.Context, clubID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Club{}).
		Where("id = ? AND deleted_at IS NULL", clubID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check club: %w", err)
	}
	return count > 0, nil
}

func (r *ClubRepository) ListClubIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Club{}).
		Where("deleted_at IS NULL").
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}
	return ids, nil
}

// IsClubOfficer reports whether actorID holds an active officer role in clubID.
func (r *ClubRepository) IsClubOfficer(ctx context.Context, actorID, clubID uint) (bool, error) {
	if len(r.officerRoles) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ClubMember{}).
		Where("club_id = ? AND user_id = ? AND status = ? AND role IN ?",
			clubID, actorID, models.MemberStatusActive, r.officerRoles).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check officer role: %w", err)
	}
	return count > 0, nil
}
