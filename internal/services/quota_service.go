package services

import (
	"fmt"
	"time"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	QuotaTypeSession      = "session"
	QuotaTypeFree         = "free"
	QuotaTypeSubscription = "subscription"
)

// QuotaInfo tells the client which bucket a generation would draw from
// and how much of it is left. Remaining/Total are -1 for unlimited plans.
type QuotaInfo struct {
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
	Total     int    `json:"total"`
	Message   string `json:"message"`
}

// QuotaService is the single authority for whether an identity may
// generate a message and which entitlement ledger to debit. An
// authenticated user always takes precedence over a session id, and free
// quota is always consulted before subscriptions.
type QuotaService struct {
	db *gorm.DB
}

func NewQuotaService(db *gorm.DB) *QuotaService {
	return &QuotaService{db: db}
}

// CheckQuota resolves the entitlement for the given identity without
// debiting anything. Callers run the generation, persist its result and
// then call DeductUsage.
func (s *QuotaService) CheckQuota(userID, sessionID *uuid.UUID) (*QuotaInfo, error) {
	if userID == nil && sessionID != nil {
		return s.checkSessionQuota(*sessionID)
	}

	if userID != nil {
		return s.checkUserQuota(*userID)
	}

	return nil, apperr.QuotaExceeded("Authentication or session required", nil)
}

func (s *QuotaService) checkSessionQuota(sessionID uuid.UUID) (*QuotaInfo, error) {
	var session models.AnonymousSession
	if err := s.db.First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, apperr.NotFound("Session")
	}

	if !session.CanCreateConversation() {
		return nil, apperr.QuotaExceeded(
			fmt.Sprintf("You've used all %d free conversations. Sign up to continue!", session.ConversationsLimit),
			map[string]interface{}{
				"conversationsUsed":  session.ConversationsUsed,
				"conversationsLimit": session.ConversationsLimit,
			},
		)
	}

	return &QuotaInfo{
		Type:      QuotaTypeSession,
		Remaining: session.Remaining(),
		Total:     session.ConversationsLimit,
		Message:   fmt.Sprintf("You have %d free conversation(s) remaining", session.Remaining()),
	}, nil
}

func (s *QuotaService) checkUserQuota(userID uuid.UUID) (*QuotaInfo, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, apperr.NotFound("User")
	}

	if user.NeedsQuotaReset() {
		if err := s.resetFreeQuota(&user); err != nil {
			return nil, fmt.Errorf("failed to reset free quota: %w", err)
		}
	}

	if user.CanUseFreeQuota() {
		return &QuotaInfo{
			Type:      QuotaTypeFree,
			Remaining: user.FreeRemaining(),
			Total:     user.FreeQuotaLimit,
			Message:   fmt.Sprintf("You have %d free message(s) remaining this month", user.FreeRemaining()),
		}, nil
	}

	subs, err := s.activeSubscriptions(userID)
	if err != nil {
		return nil, err
	}

	for i := range subs {
		sub := &subs[i]
		if sub.MaxMessages == models.UnlimitedMessages {
			return &QuotaInfo{
				Type:      QuotaTypeSubscription,
				Remaining: models.UnlimitedMessages,
				Total:     models.UnlimitedMessages,
				Message:   fmt.Sprintf("Unlimited messages (%s plan)", sub.Tier),
			}, nil
		}
		if sub.UsedMessages < sub.MaxMessages {
			return &QuotaInfo{
				Type:      QuotaTypeSubscription,
				Remaining: sub.Remaining(),
				Total:     sub.MaxMessages,
				Message:   fmt.Sprintf("%d messages remaining (%s plan)", sub.Remaining(), sub.Tier),
			}, nil
		}
	}

	return nil, apperr.QuotaExceeded(
		"No available quota. Please upgrade your plan to continue.",
		map[string]interface{}{
			"freeQuotaUsed":  user.FreeQuotaUsed,
			"freeQuotaLimit": user.FreeQuotaLimit,
			"subscriptions":  len(subs),
		},
	)
}

// DeductUsage debits exactly one ledger, mirroring CheckQuota's
// precedence. All increments are single-statement updates so concurrent
// requests never lose counts.
func (s *QuotaService) DeductUsage(userID, sessionID *uuid.UUID) error {
	if userID == nil && sessionID != nil {
		return s.db.Model(&models.AnonymousSession{}).
			Where("id = ?", *sessionID).
			UpdateColumn("conversations_used", gorm.Expr("conversations_used + 1")).Error
	}

	if userID == nil {
		return nil
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", *userID).Error; err != nil {
		return nil
	}

	if user.CanUseFreeQuota() {
		return s.db.Model(&models.User{}).
			Where("id = ?", user.ID).
			UpdateColumn("free_quota_used", gorm.Expr("free_quota_used + 1")).Error
	}

	subs, err := s.activeSubscriptions(user.ID)
	if err != nil {
		return err
	}

	for i := range subs {
		sub := &subs[i]
		if sub.HasQuota() {
			return s.db.Model(&models.Subscription{}).
				Where("id = ?", sub.ID).
				UpdateColumn("used_messages", gorm.Expr("used_messages + 1")).Error
		}
	}

	return nil
}

// FreeQuotaStats is the authenticated user's monthly allowance block.
type FreeQuotaStats struct {
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetsOn  time.Time `json:"resets_on"`
}

type SessionQuotaStats struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

type SubscriptionStats struct {
	Tier      string    `json:"tier"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	EndsAt    time.Time `json:"ends_at"`
}

type UsageStats struct {
	UserType           string              `json:"user_type"`
	FreeQuota          *FreeQuotaStats     `json:"free_quota,omitempty"`
	SessionQuota       *SessionQuotaStats  `json:"session_quota,omitempty"`
	Subscriptions      []SubscriptionStats `json:"subscriptions,omitempty"`
	TotalConversations int64               `json:"total_conversations"`
	Message            string              `json:"message,omitempty"`
}

// UsageStats assembles the snapshot served by GET /usage.
func (s *QuotaService) UsageStats(userID, sessionID *uuid.UUID) (*UsageStats, error) {
	if userID == nil && sessionID != nil {
		var session models.AnonymousSession
		if err := s.db.First(&session, "id = ?", *sessionID).Error; err != nil {
			return nil, apperr.NotFound("Session")
		}

		return &UsageStats{
			UserType: "anonymous",
			SessionQuota: &SessionQuotaStats{
				Used:      session.ConversationsUsed,
				Limit:     session.ConversationsLimit,
				Remaining: session.Remaining(),
			},
			Message: "Sign up to get free messages every month and access to premium plans!",
		}, nil
	}

	if userID == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", *userID).Error; err != nil {
		return nil, apperr.NotFound("User")
	}

	subs, err := s.activeSubscriptions(user.ID)
	if err != nil {
		return nil, err
	}

	var totalConversations int64
	if err := s.db.Model(&models.Conversation{}).Where("user_id = ?", user.ID).Count(&totalConversations).Error; err != nil {
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}

	stats := &UsageStats{
		UserType: "authenticated",
		FreeQuota: &FreeQuotaStats{
			Used:      user.FreeQuotaUsed,
			Limit:     user.FreeQuotaLimit,
			Remaining: user.FreeRemaining(),
			ResetsOn:  firstDayOfNextMonth(time.Now().UTC()),
		},
		TotalConversations: totalConversations,
	}

	for i := range subs {
		sub := &subs[i]
		stats.Subscriptions = append(stats.Subscriptions, SubscriptionStats{
			Tier:      sub.Tier,
			Used:      sub.UsedMessages,
			Limit:     sub.MaxMessages,
			Remaining: sub.Remaining(),
			EndsAt:    sub.EndDate,
		})
	}

	return stats, nil
}

// activeSubscriptions orders unlimited plans first, then least-used, so
// flexible allowances exhaust before smaller ones.
func (s *QuotaService) activeSubscriptions(userID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.
		Where("user_id = ? AND is_active = ? AND end_date >= ?", userID, true, time.Now()).
		Order("CASE WHEN max_messages = -1 THEN 1 ELSE 0 END DESC, max_messages DESC, used_messages ASC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	return subs, nil
}

// resetFreeQuota zeroes the monthly counter. The stale-month guard in
// the WHERE clause makes concurrent resets idempotent: only one UPDATE
// matches, the rest are no-ops.
func (s *QuotaService) resetFreeQuota(user *models.User) error {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	err := s.db.Model(&models.User{}).
		Where("id = ? AND last_quota_reset < ?", user.ID, monthStart).
		UpdateColumns(map[string]interface{}{
			"free_quota_used":  0,
			"last_quota_reset": now,
		}).Error
	if err != nil {
		return err
	}

	user.FreeQuotaUsed = 0
	user.LastQuotaReset = now
	return nil
}

func firstDayOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
