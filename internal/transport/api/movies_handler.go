package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type MoviesHandler struct {
	movieSvs  MovieServicer
	ratingSvs RatingServicer
}

func NewMoviesHandler(movieSvs MovieServicer, ratingSvs RatingServicer) *MoviesHandler {
	return &MoviesHandler{
		movieSvs:  movieSvs,
		ratingSvs: ratingSvs,
	}
}

type MovieResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Year        int32           `json:"year,omitempty"`
	Genre       string          `json:"genre,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Rating      float64         `json:"rating"`
	Votes       int32           `json:"votes"`
	Stock       int32           `json:"stock"`
	Available   bool            `json:"available"`
}

func newMovieResponse(m *domain.Movie) MovieResponse {
	return MovieResponse{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Year:        m.Year,
		Genre:       m.Genre,
		Price:       m.Price,
		Rating:      m.Rating,
		Votes:       m.Votes,
		Stock:       m.Stock,
		Available:   m.Available,
	}
}

// SearchParams параметры каталога. Без фильтров отдается топ по голосам. actors - имена через запятую,
// фильм должен быть у всех.
type SearchParams struct {
	Top    uint   `binding:"omitempty,max=100"        form:"top"`
	Title  string `binding:"omitempty,max_bytes=255"  form:"title"`
	Genre  string `binding:"omitempty,max_bytes=100"  form:"genre"`
	Year   int32  `binding:"omitempty,min=1,max=9999" form:"year"`
	Actor  string `binding:"omitempty,max_bytes=255"  form:"actor"`
	Actors string `binding:"omitempty,max_bytes=2048" form:"actors"`
}

func (p SearchParams) filter() repoargs.MovieFilter {
	f := repoargs.MovieFilter{
		Title: p.Title,
		Genre: p.Genre,
		Year:  p.Year,
		Actor: p.Actor,
		Limit: p.Top,
	}
	if p.Actors != "" {
		f.Actors = strings.Split(p.Actors, ",")
	}
	return f
}

// Index GET RouteGroup + MoviesRoute?top=N&title=&genre=&year=&actor=&actors=. Фильмы в продаже
// по убыванию голосов и рейтинга.
func (h *MoviesHandler) Index(c *gin.Context) {
	var params SearchParams
	if bindErr := c.ShouldBindQuery(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	var (
		movies []domain.Movie
		err    error
	)
	if filter := params.filter(); filter.Empty() {
		movies, err = h.movieSvs.Top(ctx, params.Top)
	} else {
		movies, err = h.movieSvs.Search(ctx, filter)
	}
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	response := make([]MovieResponse, len(movies))
	for i := range movies {
		response[i] = newMovieResponse(&movies[i])
	}
	c.JSON(http.StatusOK, response)
}

// Show GET RouteGroup + MovieRoute.
func (h *MoviesHandler) Show(c *gin.Context) {
	movieID, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	movie, err := h.movieSvs.Get(ctx, movieID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMovieResponse(movie))
}

type RateParams struct {
	Score *float64 `binding:"required,min=0,max=10" json:"score"`
}

// Rate POST RouteGroup + MovieRatingRoute. Оценка фильма текущим юзером.
func (h *MoviesHandler) Rate(c *gin.Context) {
	movieID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var params RateParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	movie, err := h.ratingSvs.Submit(ctx, getUserIDFromContext(c), movieID, *params.Score)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMovieResponse(movie))
}

type CreateMovieParams struct {
	Title       string           `binding:"required,not_blank,max_bytes=255"               json:"title"`
	Description string           `binding:"omitempty,max_bytes=4096"                       json:"description"`
	Year        int32            `binding:"omitempty,min=1,max=9999"                       json:"year"`
	Genre       string           `binding:"omitempty,max_bytes=100"                        json:"genre"`
	Price       *decimal.Decimal `binding:"required"                                       json:"price"`
	Stock       *int32           `binding:"required,min=0"                                 json:"stock"`
	Actors      []string         `binding:"omitempty,max=100,dive,not_blank,max_bytes=255" json:"actors"`
}

// Create POST RouteGroup + MoviesRoute. Только для администраторов.
func (h *MoviesHandler) Create(c *gin.Context) {
	var params CreateMovieParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	movie, err := h.movieSvs.Create(ctx, repoargs.CreateMovie{
		Title:       params.Title,
		Description: params.Description,
		Year:        params.Year,
		Genre:       params.Genre,
		Price:       *params.Price,
		Stock:       *params.Stock,
		Actors:      params.Actors,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newMovieResponse(movie))
}

// UpdateMovieParams переданные поля меняются, отсутствующие остаются прежними.
type UpdateMovieParams struct {
	Title       *string          `binding:"omitempty,not_blank,max_bytes=255" json:"title"`
	Description *string          `binding:"omitempty,max_bytes=4096"          json:"description"`
	Year        *int32           `binding:"omitempty,min=1,max=9999"          json:"year"`
	Genre       *string          `binding:"omitempty,max_bytes=100"           json:"genre"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int32           `binding:"omitempty,min=0"                   json:"stock"`
	Available   *bool            `json:"available"`
}

// Update PATCH RouteGroup + MovieRoute. Только для администраторов.
func (h *MoviesHandler) Update(c *gin.Context) {
	movieID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var params UpdateMovieParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	movie, err := h.movieSvs.Update(ctx, movieID, repoargs.UpdateMovie{
		Title:       params.Title,
		Description: params.Description,
		Year:        params.Year,
		Genre:       params.Genre,
		Price:       params.Price,
		Stock:       params.Stock,
		Available:   params.Available,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMovieResponse(movie))
}

// Destroy DELETE RouteGroup + MovieRoute. Снимает фильм с продажи, история заказов сохраняется.
// Только для администраторов.
func (h *MoviesHandler) Destroy(c *gin.Context) {
	movieID, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if err := h.movieSvs.Withdraw(ctx, movieID); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
