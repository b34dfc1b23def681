package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/service"
	"github.com/fsdevblog/moviestore/internal/transport/api/testutils"
)

type UserHandlerTestSuite struct {
	handlerSuite
}

func TestUserHandlerSuite(t *testing.T) {
	suite.Run(t, new(UserHandlerTestSuite))
}

func (s *UserHandlerTestSuite) TestRegister() {
	user := &domain.User{ID: s.userID, Name: "alice", Nationality: "fr", Balance: decimal.Zero}

	s.mockUserService.EXPECT().
		Register(gomock.Any(), service.RegisterUserArgs{Username: "alice", Password: "secret1", Nationality: "fr"}).
		Return(user, "new-token", nil).Times(1)
	s.mockUserService.EXPECT().
		Register(gomock.Any(), service.RegisterUserArgs{Username: "bob", Password: "secret1"}).
		Return(nil, "", fmt.Errorf("registering user: %w", domain.ErrDuplicateKey)).Times(1)

	cases := []struct {
		name       string
		payload    string
		token      string
		wantStatus int
		wantHeader string
	}{
		{
			name:       "all ok",
			payload:    `{"login":"alice","password":"secret1","nationality":"fr"}`,
			wantStatus: http.StatusOK,
			wantHeader: "Bearer new-token",
		}, {
			name:       "duplicate login",
			payload:    `{"login":"bob","password":"secret1"}`,
			wantStatus: http.StatusConflict,
		}, {
			name:       "short password",
			payload:    `{"login":"carol","password":"123"}`,
			wantStatus: http.StatusUnprocessableEntity,
		}, {
			name: "login over max bytes",
			payload: fmt.Sprintf(`{"login":"%s","password":"secret1"}`,
				testutils.GenerateOverBytesUnderRunes(20)),
			wantStatus: http.StatusUnprocessableEntity,
		}, {
			name:       "malformed json",
			payload:    `{"login":`,
			wantStatus: http.StatusBadRequest,
		}, {
			name:       "already authorized",
			payload:    `{"login":"alice","password":"secret1"}`,
			token:      s.token,
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res := s.request(http.MethodPost, RouteGroup+RegisterRoute, t.payload, t.token)
			s.Equal(t.wantStatus, res.status, string(res.body))
			if t.wantHeader != "" {
				s.Equal(t.wantHeader, res.header.Get("Authorization"))
			}
		})
	}
}

func (s *UserHandlerTestSuite) TestRegisterResponseBody() {
	s.mockUserService.EXPECT().
		Register(gomock.Any(), gomock.Any()).
		Return(&domain.User{ID: s.userID, Name: "alice", Discount: decimal.NewFromInt(5)}, "t", nil)

	res := s.request(http.MethodPost, RouteGroup+RegisterRoute, `{"login":"alice","password":"secret1"}`, "")
	s.Require().Equal(http.StatusOK, res.status)

	var body struct {
		User UserResponse `json:"user"`
	}
	s.Require().NoError(json.Unmarshal(res.body, &body))
	s.Equal(s.userID, body.User.ID)
	s.Equal("alice", body.User.Username)
	s.True(body.User.Discount.Equal(decimal.NewFromInt(5)))
}

func (s *UserHandlerTestSuite) TestLogin() {
	user := &domain.User{ID: s.userID, Name: "alice"}

	s.mockUserService.EXPECT().
		Login(gomock.Any(), service.LoginUserArgs{Username: "alice", Password: "secret1"}).
		Return(user, "login-token", nil).Times(1)
	s.mockUserService.EXPECT().
		Login(gomock.Any(), service.LoginUserArgs{Username: "alice", Password: "wrong-pass"}).
		Return(nil, "", domain.ErrPasswordMissMatch).Times(1)
	s.mockUserService.EXPECT().
		Login(gomock.Any(), service.LoginUserArgs{Username: "ghost", Password: "secret1"}).
		Return(nil, "", fmt.Errorf("login: %w", domain.ErrRecordNotFound)).Times(1)

	cases := []struct {
		name       string
		payload    string
		wantStatus int
	}{
		{name: "all ok", payload: `{"login":"alice","password":"secret1"}`, wantStatus: http.StatusOK},
		{name: "wrong password", payload: `{"login":"alice","password":"wrong-pass"}`, wantStatus: http.StatusUnauthorized},
		{name: "unknown user", payload: `{"login":"ghost","password":"secret1"}`, wantStatus: http.StatusUnauthorized},
		{name: "empty body", payload: `{}`, wantStatus: http.StatusBadRequest},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res := s.request(http.MethodPost, RouteGroup+LoginRoute, t.payload, "")
			s.Equal(t.wantStatus, res.status, string(res.body))
			if t.wantStatus == http.StatusOK {
				s.Equal("Bearer login-token", res.header.Get("Authorization"))
			}
		})
	}
}

func (s *UserHandlerTestSuite) TestBalance() {
	s.mockUserService.EXPECT().
		Get(gomock.Any(), s.userID).
		Return(&domain.User{ID: s.userID, Balance: decimal.RequireFromString("12.5")}, nil).Times(1)

	res := s.request(http.MethodGet, RouteGroup+BalanceRoute, "", s.token)
	s.Require().Equal(http.StatusOK, res.status)

	var body BalanceResponse
	s.Require().NoError(json.Unmarshal(res.body, &body))
	s.True(body.Balance.Equal(decimal.RequireFromString("12.5")))

	res = s.request(http.MethodGet, RouteGroup+BalanceRoute, "", "")
	s.Equal(http.StatusUnauthorized, res.status)

	res = s.request(http.MethodGet, RouteGroup+BalanceRoute, "", "broken.token.value")
	s.Equal(http.StatusUnauthorized, res.status)
}

func (s *UserHandlerTestSuite) TestCredit() {
	s.mockUserService.EXPECT().
		Credit(gomock.Any(), s.userID, decimal.RequireFromString("25.75")).
		Return(decimal.RequireFromString("125.75"), nil).Times(1)
	s.mockUserService.EXPECT().
		Credit(gomock.Any(), s.userID, decimal.RequireFromString("-5")).
		Return(decimal.Zero, fmt.Errorf("credit: %w", domain.ErrInvalidAmount)).Times(1)
	s.mockUserService.EXPECT().
		Credit(gomock.Any(), s.userID, decimal.RequireFromString("1")).
		Return(decimal.Zero, fmt.Errorf("credit: %w", domain.ErrUserInactive)).Times(1)

	cases := []struct {
		name        string
		payload     string
		wantStatus  int
		wantBalance string
	}{
		{name: "all ok", payload: `{"amount":"25.75"}`, wantStatus: http.StatusOK, wantBalance: "125.75"},
		{name: "negative amount", payload: `{"amount":-5}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "inactive user", payload: `{"amount":1}`, wantStatus: http.StatusForbidden},
		{name: "not a number", payload: `{"amount":"abc"}`, wantStatus: http.StatusBadRequest},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res := s.request(http.MethodPost, RouteGroup+CreditRoute, t.payload, s.token)
			s.Require().Equal(t.wantStatus, res.status, string(res.body))
			if t.wantBalance != "" {
				var body BalanceResponse
				s.Require().NoError(json.Unmarshal(res.body, &body))
				s.True(body.Balance.Equal(decimal.RequireFromString(t.wantBalance)))
			}
		})
	}
}
