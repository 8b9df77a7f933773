package services

import (
	"testing"
	"time"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetSession(t *testing.T) {
	db := newTestDB(t)
	svc := NewSessionService(db, testConfig())

	session, err := svc.CreateSession()
	require.NoError(t, err)
	assert.Equal(t, 3, session.ConversationsLimit)
	assert.Equal(t, 0, session.ConversationsUsed)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	loaded, err := svc.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
}

func TestGetExpiredSession(t *testing.T) {
	db := newTestDB(t)
	svc := NewSessionService(db, testConfig())

	session, err := svc.CreateSession()
	require.NoError(t, err)
	require.NoError(t, db.Model(session).UpdateColumn("expires_at", time.Now().AddDate(0, 0, -1)).Error)

	_, err = svc.GetSession(session.ID)
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "QUOTA_EXCEEDED", appErr.Code)
}

func TestClaimSessionTransfersEverything(t *testing.T) {
	db := newTestDB(t)
	svc := NewSessionService(db, testConfig())
	user := createTestUser(t, db, 0, 3)

	session, err := svc.CreateSession()
	require.NoError(t, err)
	require.NoError(t, db.Model(session).UpdateColumn("conversations_used", 2).Error)

	for i := 0; i < 2; i++ {
		conv := createTestConversation(t, db, nil, &session.ID)
		msg := models.ChatMessage{
			ConversationID: conv.ID,
			SessionID:      &session.ID,
			Role:           models.RoleUser,
			Content:        "hello",
		}
		require.NoError(t, db.Create(&msg).Error)
	}

	claimed, err := svc.ClaimSession(session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, claimed)

	// Nothing may still reference the session after the claim.
	var orphanConvs int64
	require.NoError(t, db.Model(&models.Conversation{}).Where("session_id = ?", session.ID).Count(&orphanConvs).Error)
	assert.Zero(t, orphanConvs)

	var orphanMsgs int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Where("session_id = ?", session.ID).Count(&orphanMsgs).Error)
	assert.Zero(t, orphanMsgs)

	var ownedConvs int64
	require.NoError(t, db.Model(&models.Conversation{}).
		Where("user_id = ? AND is_anonymous = ?", user.ID, false).
		Count(&ownedConvs).Error)
	assert.Equal(t, int64(2), ownedConvs)

	var ownedMsgs int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Where("user_id = ?", user.ID).Count(&ownedMsgs).Error)
	assert.Equal(t, int64(2), ownedMsgs)
}

func TestClaimExpiredSessionFails(t *testing.T) {
	db := newTestDB(t)
	svc := NewSessionService(db, testConfig())
	user := createTestUser(t, db, 0, 3)

	session, err := svc.CreateSession()
	require.NoError(t, err)
	require.NoError(t, db.Model(session).UpdateColumn("expires_at", time.Now().AddDate(0, 0, -1)).Error)

	_, err = svc.ClaimSession(session.ID, user.ID)
	require.Error(t, err)
}

func TestCleanupExpiredSessions(t *testing.T) {
	db := newTestDB(t)
	svc := NewSessionService(db, testConfig())

	for i := 0; i < 2; i++ {
		session, err := svc.CreateSession()
		require.NoError(t, err)
		require.NoError(t, db.Model(session).UpdateColumn("expires_at", time.Now().AddDate(0, 0, -1)).Error)
	}
	live, err := svc.CreateSession()
	require.NoError(t, err)

	removed, err := svc.CleanupExpiredSessions()
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	var remaining int64
	require.NoError(t, db.Model(&models.AnonymousSession{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)

	_, err = svc.GetSession(live.ID)
	require.NoError(t, err)
}
