package service

import (
	"fmt"

	"github.com/fsdevblog/moviestore/pkg/uow"
)

type AppServices struct {
	UserService   *UserService
	MovieService  *MovieService
	CartService   *CartService
	OrderService  *OrderService
	RatingService *RatingService
}

func Factory(unitOfWork uow.UOW, settings Settings) (*AppServices, error) {
	userService, userServiceErr := NewUserService(unitOfWork, settings)
	if userServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", userServiceErr.Error())
	}

	movieService, movieServiceErr := NewMovieService(unitOfWork, settings)
	if movieServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", movieServiceErr.Error())
	}

	cartService, cartServiceErr := NewCartService(unitOfWork, settings)
	if cartServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", cartServiceErr.Error())
	}

	orderService, orderServiceErr := NewOrderService(unitOfWork, settings)
	if orderServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", orderServiceErr.Error())
	}

	return &AppServices{
		UserService:   userService,
		MovieService:  movieService,
		CartService:   cartService,
		OrderService:  orderService,
		RatingService: NewRatingService(unitOfWork, settings),
	}, nil
}
