package reconcile

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks
import "context"

// IDLister постраничная выдача id сущностей по возрастанию, начиная после afterID.
type IDLister interface {
	ListIDs(ctx context.Context, afterID int64, limit uint) ([]int64, error)
}

// Recomputer пересчитывает агрегат одной сущности в отдельной транзакции.
type Recomputer interface {
	Recompute(ctx context.Context, id int64) error
}

// RecomputerFunc адаптер функции к Recomputer.
type RecomputerFunc func(ctx context.Context, id int64) error

func (f RecomputerFunc) Recompute(ctx context.Context, id int64) error {
	return f(ctx, id)
}
