package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateConversationRequiresOwner(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db)

	_, err := svc.Create(nil, nil, "orphan")
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestCreateConversationAnonymous(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db)
	session := createTestSession(t, db, 0, 3)

	conv, err := svc.Create(nil, &session.ID, "")
	require.NoError(t, err)
	assert.True(t, conv.IsAnonymous)
	assert.Nil(t, conv.UserID)
	require.NotNil(t, conv.SessionID)
	assert.Equal(t, session.ID, *conv.SessionID)
}

func TestGetConversationAccessControl(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db)
	owner := createTestUser(t, db, 0, 3)
	conv := createTestConversation(t, db, &owner.ID, nil)

	loaded, err := svc.Get(conv.ID, &owner.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, loaded.ID)

	session := createTestSession(t, db, 0, 3)
	_, err = svc.Get(conv.ID, nil, &session.ID)
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestListConversationsPaginationAndSearch(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db)
	user := createTestUser(t, db, 0, 3)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(&user.ID, nil, fmt.Sprintf("Coffee post %d", i))
		require.NoError(t, err)
	}
	_, err := svc.Create(&user.ID, nil, "Tea thread")
	require.NoError(t, err)

	page, err := svc.List(&user.ID, nil, "", 1, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), page.Total)
	assert.Len(t, page.Conversations, 4)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasMore)

	page, err = svc.List(&user.ID, nil, "Coffee", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.False(t, page.HasMore)
}

func TestDeleteConversationCascadesMessages(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db)
	user := createTestUser(t, db, 0, 3)
	conv := createTestConversation(t, db, &user.ID, nil)

	msg := models.ChatMessage{
		ConversationID: conv.ID,
		UserID:         &user.ID,
		Role:           models.RoleUser,
		Content:        "hello",
	}
	require.NoError(t, db.Create(&msg).Error)

	require.NoError(t, svc.Delete(conv.ID, &user.ID, nil))

	var convCount, msgCount int64
	require.NoError(t, db.Model(&models.Conversation{}).Where("id = ?", conv.ID).Count(&convCount).Error)
	require.NoError(t, db.Model(&models.ChatMessage{}).Where("conversation_id = ?", conv.ID).Count(&msgCount).Error)
	assert.Zero(t, convCount)
	assert.Zero(t, msgCount)
}

func TestRenameConversation(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db)
	user := createTestUser(t, db, 0, 3)
	conv := createTestConversation(t, db, &user.ID, nil)

	renamed, err := svc.Rename(conv.ID, "  Better title  ", &user.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Better title", renamed.Title)

	_, err = svc.Rename(conv.ID, "   ", &user.ID, nil)
	require.Error(t, err)
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "short message", DeriveTitle("short message"))
	assert.Equal(t, "trimmed", DeriveTitle("  trimmed  "))

	long := strings.Repeat("a", 60)
	assert.Equal(t, strings.Repeat("a", 50)+"...", DeriveTitle(long))

	// Multi-byte runes must not be split mid-character.
	unicodeLong := strings.Repeat("ü", 60)
	assert.Equal(t, strings.Repeat("ü", 50)+"...", DeriveTitle(unicodeLong))

	exactly := strings.Repeat("b", 50)
	assert.Equal(t, exactly, DeriveTitle(exactly))
}
