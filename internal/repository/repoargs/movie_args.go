package repoargs

import "github.com/shopspring/decimal"

type CreateMovie struct {
	Title       string
	Description string
	Year        int32
	Genre       string
	Price       decimal.Decimal
	Stock       int32
	Actors      []string
}

// UpdateMovie изменяемые поля фильма. nil - поле остается прежним. Рейтинг и голоса ведет агрегатор
// оценок, поэтому здесь их нет.
type UpdateMovie struct {
	Title       *string
	Description *string
	Year        *int32
	Genre       *string
	Price       *decimal.Decimal
	Stock       *int32
	Available   *bool
}

func (u UpdateMovie) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Year == nil && u.Genre == nil &&
		u.Price == nil && u.Stock == nil && u.Available == nil
}

// MovieFilter условия поиска по каталогу, пустые поля не участвуют. Title, Genre и Actor ищутся
// как подстрока без учета регистра, Actors - фильмы, в которых снялись все перечисленные актеры.
type MovieFilter struct {
	Title  string
	Genre  string
	Year   int32
	Actor  string
	Actors []string
	Limit  uint
}

func (f MovieFilter) Empty() bool {
	return f.Title == "" && f.Genre == "" && f.Year == 0 && f.Actor == "" && len(f.Actors) == 0
}

// RatingAggregate точное среднее и количество оценок фильма.
type RatingAggregate struct {
	Average float64
	Count   int32
}
