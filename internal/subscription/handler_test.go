package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ironsan2kk-pixel/back-sub000/internal/channel"
	"github.com/ironsan2kk-pixel/back-sub000/internal/logger"
	"github.com/ironsan2kk-pixel/back-sub000/internal/user"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type MockUsers struct{ mock.Mock }

func (m *MockUsers) GetByID(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUsers) GetByTelegramID(ctx context.Context, telegramID int64) (*user.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUsers) AddSpendTx(ctx context.Context, tx *sqlx.Tx, userID int64, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, tx, userID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) CreditBalanceTx(ctx context.Context, tx *sqlx.Tx, userID int64, amount decimal.Decimal) error {
	return m.Called(ctx, tx, userID, amount).Error(0)
}

type MockChannels struct{ mock.Mock }

func (m *MockChannels) GetChannelByID(ctx context.Context, id int64) (*channel.Channel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*channel.Channel), args.Error(1)
}

func (m *MockChannels) GetPackageByID(ctx context.Context, id int64) (*channel.Package, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*channel.Package), args.Error(1)
}

func (m *MockChannels) GetPlanByID(ctx context.Context, id int64) (*channel.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*channel.Plan), args.Error(1)
}

func (m *MockChannels) ResolveChannels(ctx context.Context, targetType channel.TargetType, targetID int64) ([]channel.Channel, error) {
	args := m.Called(ctx, targetType, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]channel.Channel), args.Error(1)
}

type MockMembers struct{ mock.Mock }

func (m *MockMembers) GrantAccess(ctx context.Context, channelTelegramID, userTelegramID int64, expiresAt *time.Time) (string, error) {
	args := m.Called(ctx, channelTelegramID, userTelegramID, expiresAt)
	return args.String(0), args.Error(1)
}

func (m *MockMembers) RevokeAccess(ctx context.Context, channelTelegramID, userTelegramID int64) error {
	return m.Called(ctx, channelTelegramID, userTelegramID).Error(0)
}

func postJSON(h gin.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h(c)
	return w
}

func TestTrialHandler_NoTrialOnChannel(t *testing.T) {
	users := new(MockUsers)
	channels := new(MockChannels)
	members := new(MockMembers)

	users.On("GetByID", mock.Anything, int64(42)).Return(&user.User{ID: 42, TelegramID: 4242}, nil)
	channels.On("GetChannelByID", mock.Anything, int64(7)).
		Return(&channel.Channel{ID: 7, TelegramChatID: -100500, TrialDays: 0, Active: true}, nil)

	h := NewHandler(NewService(nil, new(MockRepo)), users, channels, members)
	w := postJSON(h.Trial, "/api/trials", `{"user_id":42,"channel_id":7}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	members.AssertNotCalled(t, "GrantAccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTrialHandler_AlreadyUsed(t *testing.T) {
	users := new(MockUsers)
	channels := new(MockChannels)
	members := new(MockMembers)
	repo := new(MockRepo)

	users.On("GetByID", mock.Anything, int64(42)).Return(&user.User{ID: 42, TelegramID: 4242}, nil)
	channels.On("GetChannelByID", mock.Anything, int64(7)).
		Return(&channel.Channel{ID: 7, TelegramChatID: -100500, TrialDays: 3, Active: true}, nil)
	repo.On("HasUsedTrial", mock.Anything, int64(42), int64(7)).Return(true, nil)

	h := NewHandler(NewService(nil, repo), users, channels, members)
	w := postJSON(h.Trial, "/api/trials", `{"user_id":42,"channel_id":7}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	members.AssertNotCalled(t, "GrantAccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTrialHandler_LiveSubscriptionConflict(t *testing.T) {
	rawDB, dbmock, err := sqlmock.New()
	require.NoError(t, err)
	defer rawDB.Close()
	db := sqlx.NewDb(rawDB, "sqlmock")

	users := new(MockUsers)
	channels := new(MockChannels)
	members := new(MockMembers)
	repo := new(MockRepo)

	users.On("GetByID", mock.Anything, int64(42)).Return(&user.User{ID: 42, TelegramID: 4242}, nil)
	channels.On("GetChannelByID", mock.Anything, int64(7)).
		Return(&channel.Channel{ID: 7, TelegramChatID: -100500, TrialDays: 3, Active: true}, nil)
	repo.On("HasUsedTrial", mock.Anything, int64(42), int64(7)).Return(false, nil)

	future := time.Now().AddDate(0, 0, 20)
	dbmock.ExpectBegin()
	repo.On("GetLiveTx", mock.Anything, mock.Anything, int64(42), int64(7)).
		Return(&Subscription{ID: 5, Status: StatusActive, ExpiresAt: &future}, nil)
	dbmock.ExpectRollback()

	h := NewHandler(NewService(db, repo), users, channels, members)
	w := postJSON(h.Trial, "/api/trials", `{"user_id":42,"channel_id":7}`)

	// A paid subscriber never gets free days appended through the trial path.
	assert.Equal(t, http.StatusConflict, w.Code)
	repo.AssertNotCalled(t, "ExtendTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	members.AssertNotCalled(t, "GrantAccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, dbmock.ExpectationsWereMet())
}

func TestTrialHandler_IssuesTrial(t *testing.T) {
	rawDB, dbmock, err := sqlmock.New()
	require.NoError(t, err)
	defer rawDB.Close()
	db := sqlx.NewDb(rawDB, "sqlmock")

	users := new(MockUsers)
	channels := new(MockChannels)
	members := new(MockMembers)
	repo := new(MockRepo)

	users.On("GetByID", mock.Anything, int64(42)).Return(&user.User{ID: 42, TelegramID: 4242}, nil)
	channels.On("GetChannelByID", mock.Anything, int64(7)).
		Return(&channel.Channel{ID: 7, TelegramChatID: -100500, TrialDays: 3, Active: true}, nil)
	repo.On("HasUsedTrial", mock.Anything, int64(42), int64(7)).Return(false, nil)

	dbmock.ExpectBegin()
	repo.On("GetLiveTx", mock.Anything, mock.Anything, int64(42), int64(7)).Return(nil, nil)
	repo.On("CreateTx", mock.Anything, mock.Anything, int64(42), int64(7),
		StatusTrial, mock.Anything, (*int64)(nil), true).
		Return(&Subscription{ID: 1, Status: StatusTrial, IsTrial: true}, nil)
	dbmock.ExpectCommit()

	members.On("GrantAccess", mock.Anything, int64(-100500), int64(4242), mock.Anything).
		Return("https://t.me/+trial", nil)

	h := NewHandler(NewService(db, repo), users, channels, members)
	w := postJSON(h.Trial, "/api/trials", `{"user_id":42,"channel_id":7}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "https://t.me/+trial")
	assert.NoError(t, dbmock.ExpectationsWereMet())
}
