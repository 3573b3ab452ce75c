package notifications

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/eproba/eproba-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type fakePushSender struct {
	mu    sync.Mutex
	calls []pushCall
	err   error
}

type pushCall struct {
	Tokens []string
	Title  string
	Link   string
}

func (f *fakePushSender) Send(_ context.Context, tokens []string, title, body, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pushCall{Tokens: tokens, Title: title, Link: link})
	return f.err
}

type fakeEmailSender struct {
	mu    sync.Mutex
	calls []emailCall
	err   error
}

type emailCall struct {
	To      string
	Subject string
}

func (f *fakeEmailSender) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, emailCall{To: to, Subject: subject})
	return f.err
}

type fakeDeviceLister struct {
	tokens map[uint64][]string
	err    error
}

func (f *fakeDeviceLister) ListDeviceTokens(userIDs []uint64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var all []string
	for _, id := range userIDs {
		all = append(all, f.tokens[id]...)
	}
	return all, nil
}

// DispatcherTestSuite defines the test suite for Dispatcher
type DispatcherTestSuite struct {
	suite.Suite
	push    *fakePushSender
	email   *fakeEmailSender
	devices *fakeDeviceLister
}

func (suite *DispatcherTestSuite) SetupTest() {
	suite.push = &fakePushSender{}
	suite.email = &fakeEmailSender{}
	suite.devices = &fakeDeviceLister{tokens: map[uint64][]string{}}
}

func (suite *DispatcherTestSuite) newDispatcher() *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(logger, suite.push, suite.email, suite.devices, "internal.example.com", "https://eproba.example.com")
}

func user(id uint64, email string, wantsEmail bool) models.User {
	return models.User{ID: id, Email: email, EmailNotifications: wantsEmail}
}

func (suite *DispatcherTestSuite) TestDeliversPushAndEmail() {
	suite.devices.tokens[1] = []string{"tok-a", "tok-b"}
	d := suite.newDispatcher()

	d.Notify([]models.User{user(1, "scout@example.com", true)}, "Task approved", "body", "/worksheets/7")
	d.Wait()

	suite.Require().Len(suite.push.calls, 1)
	assert.ElementsMatch(suite.T(), []string{"tok-a", "tok-b"}, suite.push.calls[0].Tokens)
	assert.Equal(suite.T(), "https://eproba.example.com/worksheets/7", suite.push.calls[0].Link)

	suite.Require().Len(suite.email.calls, 1)
	assert.Equal(suite.T(), "scout@example.com", suite.email.calls[0].To)
	assert.Equal(suite.T(), "Task approved", suite.email.calls[0].Subject)
}

func (suite *DispatcherTestSuite) TestSkipsEmailForOptedOutUsers() {
	d := suite.newDispatcher()

	d.Notify([]models.User{user(1, "scout@example.com", false)}, "Task approved", "body", "")
	d.Wait()

	assert.Empty(suite.T(), suite.email.calls)
}

func (suite *DispatcherTestSuite) TestSkipsEmailForInternalAddresses() {
	d := suite.newDispatcher()

	d.Notify([]models.User{
		user(1, "bot@Internal.Example.COM", true),
		user(2, "scout@example.com", true),
	}, "Task approved", "body", "")
	d.Wait()

	suite.Require().Len(suite.email.calls, 1)
	assert.Equal(suite.T(), "scout@example.com", suite.email.calls[0].To)
}

func (suite *DispatcherTestSuite) TestNoPushWhenNoDevicesRegistered() {
	d := suite.newDispatcher()

	d.Notify([]models.User{user(1, "scout@example.com", true)}, "Task approved", "body", "")
	d.Wait()

	assert.Empty(suite.T(), suite.push.calls)
}

func (suite *DispatcherTestSuite) TestNilSendersDisableChannelsQuietly() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(logger, nil, nil, suite.devices, "", "")

	d.Notify([]models.User{user(1, "scout@example.com", true)}, "Task approved", "body", "")
	d.Wait()

	assert.Empty(suite.T(), suite.push.calls)
	assert.Empty(suite.T(), suite.email.calls)
}

func (suite *DispatcherTestSuite) TestDeliveryErrorsAreSwallowed() {
	suite.devices.tokens[1] = []string{"tok-a"}
	suite.push.err = errors.New("gateway down")
	suite.email.err = errors.New("smtp down")
	d := suite.newDispatcher()

	// Must not panic or surface the failures to the caller.
	d.Notify([]models.User{user(1, "scout@example.com", true)}, "Task approved", "body", "")
	d.Wait()

	assert.Len(suite.T(), suite.push.calls, 1)
	assert.Len(suite.T(), suite.email.calls, 1)
}

func (suite *DispatcherTestSuite) TestEmptyTargetListIsNoOp() {
	d := suite.newDispatcher()
	d.Notify(nil, "Task approved", "body", "")
	d.Wait()

	assert.Empty(suite.T(), suite.push.calls)
	assert.Empty(suite.T(), suite.email.calls)
}

func TestDispatcherTestSuite(t *testing.T) {
	suite.Run(t, new(DispatcherTestSuite))
}
