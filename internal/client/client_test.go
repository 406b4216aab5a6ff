package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fsdevblog/festwallet/internal/ledger"
	"github.com/fsdevblog/festwallet/internal/logger"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/fsdevblog/festwallet/internal/session"
	"github.com/fsdevblog/festwallet/internal/transport/api"
	"github.com/fsdevblog/festwallet/internal/transport/api/mocks"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ClientTestSuite struct {
	suite.Suite
	server   *httptest.Server
	mockSync *mocks.MockSyncServicer
	client   *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.mockSync = mocks.NewMockSyncServicer(gomock.NewController(s.T()))

	l := logger.New(io.Discard)
	router, err := api.New(api.RouterArgs{
		Logger:       l,
		Ledger:       ledger.New("node-a", replication.NewLog(), l),
		Sync:         s.mockSync,
		JWTSecretKey: []byte("secret"),
	})
	s.Require().NoError(err)
	s.server = httptest.NewServer(router)
	s.client = New(s.server.URL)
}

func (s *ClientTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientTestSuite) login() {
	token, err := s.client.IssueToken(s.T().Context(), "alice")
	s.Require().NoError(err)
	s.client.SetToken(token)
}

func (s *ClientTestSuite) TestWithoutToken() {
	_, err := s.client.CreateBooth(s.T().Context(), "bar")
	s.Require().ErrorIs(err, ErrUnauthorized)
}

func (s *ClientTestSuite) TestRegisterTopUpSell() {
	ctx := s.T().Context()
	s.login()

	_, err := s.client.CreateBooth(ctx, "bar")
	s.Require().NoError(err)
	p, err := s.client.RegisterParticipant(ctx, "W 12", "Ann", decimal.NewFromInt(50))
	s.Require().NoError(err)

	_, err = s.client.TopUp(ctx, "W 12", decimal.NewFromInt(20), "cash")
	s.Require().NoError(err)
	_, err = s.client.Sell(ctx, "W 12", decimal.NewFromInt(30), "bar", "beer")
	s.Require().NoError(err)

	_, err = s.client.Sell(ctx, "W 12", decimal.NewFromInt(50), "bar", "")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusPaymentRequired, apiErr.Status)
	s.NotEmpty(apiErr.Message)

	got, err := s.client.LookupCard(ctx, "W 12")
	s.Require().NoError(err)
	s.True(got.Balance.Equal(decimal.NewFromInt(40)))

	list, err := s.client.Transactions(ctx, p.ID)
	s.Require().NoError(err)
	s.Len(list, 3)

	booths, err := s.client.Booths(ctx)
	s.Require().NoError(err)
	s.Require().Len(booths, 1)
	s.True(booths[0].TotalSales.Equal(decimal.NewFromInt(30)))
}

func (s *ClientTestSuite) TestLookupUnknownCard() {
	_, err := s.client.LookupCard(s.T().Context(), "nope")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusNotFound, apiErr.Status)
}

func (s *ClientTestSuite) TestSyncCommands() {
	ctx := s.T().Context()
	s.login()

	s.mockSync.EXPECT().Connect(gomock.Any(), "10.0.0.2:9000").Return(nil)
	s.mockSync.EXPECT().Status().
		Return(session.Status{State: session.StateActive, Role: session.RoleClient, PeerCount: 1}).Times(2)
	st, err := s.client.SyncConnect(ctx, "10.0.0.2:9000")
	s.Require().NoError(err)
	s.Equal(session.RoleClient, st.Role)

	st, err = s.client.SyncStatus(ctx)
	s.Require().NoError(err)
	s.Equal(1, st.PeerCount)

	s.mockSync.EXPECT().Disconnect(gomock.Any()).Return(nil)
	s.mockSync.EXPECT().Status().Return(session.Status{State: session.StateIdle})
	st, err = s.client.SyncDisconnect(ctx)
	s.Require().NoError(err)
	s.Equal(session.StateIdle, st.State)
}
