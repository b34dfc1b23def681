package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/logger"
	"github.com/fsdevblog/moviestore/internal/service/tokens"
	"github.com/fsdevblog/moviestore/internal/transport/api/mocks"
	"github.com/fsdevblog/moviestore/internal/transport/api/testutils"
)

// handlerSuite общая обвязка тестов обработчиков: роутер на моках сервисов и токен текущего юзера.
type handlerSuite struct {
	suite.Suite
	router    *gin.Engine
	jwtSecret []byte
	userID    uuid.UUID
	token     string

	mockUserService   *mocks.MockUserServicer
	mockMovieService  *mocks.MockMovieServicer
	mockRatingService *mocks.MockRatingServicer
	mockCartService   *mocks.MockCartServicer
	mockOrderService  *mocks.MockOrderServicer
}

func (s *handlerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	mockCtrl := gomock.NewController(s.T())

	s.mockUserService = mocks.NewMockUserServicer(mockCtrl)
	s.mockMovieService = mocks.NewMockMovieServicer(mockCtrl)
	s.mockRatingService = mocks.NewMockRatingServicer(mockCtrl)
	s.mockCartService = mocks.NewMockCartServicer(mockCtrl)
	s.mockOrderService = mocks.NewMockOrderServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	s.userID = uuid.New()
	s.token = s.tokenFor(s.userID)

	router, err := New(RouterArgs{
		Logger:        logger.New(io.Discard, "moviestore-test"),
		ServiceName:   "moviestore-test",
		UserService:   s.mockUserService,
		MovieService:  s.mockMovieService,
		RatingService: s.mockRatingService,
		CartService:   s.mockCartService,
		OrderService:  s.mockOrderService,
		JWTSecretKey:  s.jwtSecret,
	})
	s.Require().NoError(err)
	s.router = router
}

func (s *handlerSuite) tokenFor(userID uuid.UUID) string {
	token, err := tokens.GenerateUserJWT(userID, time.Hour, s.jwtSecret)
	s.Require().NoError(err)
	return token
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// request выполняет запрос к роутеру. Пустой token - запрос без авторизации.
func (s *handlerSuite) request(method, url, body, token string) response {
	args := testutils.RequestArgs{
		Router: s.router,
		Method: method,
		URL:    url,
	}
	if body != "" {
		args.Body = bytes.NewReader([]byte(body))
	}
	opts := []func(*testutils.RequestOptions){
		testutils.WithHeader("Content-Type", "application/json"),
	}
	if token != "" {
		opts = append(opts, testutils.WithHeader("Authorization", fmt.Sprintf("Bearer %s", token)))
	}
	res, err := testutils.MakeRequest(args, opts...)
	s.Require().NoError(err)
	defer func() {
		s.Require().NoError(res.Body.Close())
	}()

	data, err := io.ReadAll(res.Body)
	s.Require().NoError(err)
	return response{status: res.StatusCode, header: res.Header, body: data}
}

// asAdmin текущий юзер - администратор.
func (s *handlerSuite) asAdmin() {
	s.mockUserService.EXPECT().
		Get(gomock.Any(), s.userID).
		Return(&domain.User{ID: s.userID, Admin: true, Active: true}, nil).
		AnyTimes()
}
