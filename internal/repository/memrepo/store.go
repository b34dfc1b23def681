// Package memrepo хранилище в памяти с теми же репозиториями и транзакционной семантикой, что и pgrepo
// в режиме read committed: изменения пишутся на месте и откатываются журналом отмены, чужие транзакции
// до коммита видят прежние версии строк, строки блокируются эксклюзивно до конца транзакции,
// взаимные блокировки обнаруживаются и прерывают одну из транзакций с domain.ErrDeadlock.
package memrepo

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/repository/repoargs"
	"github.com/fsdevblog/moviestore/pkg/uow"
	"github.com/google/uuid"
)

type itemKey struct {
	parentID int64
	movieID  int64
}

type ratingKey struct {
	userID  uuid.UUID
	movieID int64
}

// actorMovieKey parentID - id актера.
type actorMovieKey = itemKey

type Store struct {
	mu          sync.Mutex
	users       *table[uuid.UUID, domain.User]
	movies      *table[int64, domain.Movie]
	actors      *table[int64, string]
	actorMovies *table[actorMovieKey, struct{}]
	carts       *table[int64, domain.Cart]
	cartItems   *table[itemKey, int32]
	orders      *table[int64, domain.Order]
	orderItems  *table[itemKey, int32]
	ratings     *table[ratingKey, float64]

	movieSeq atomic.Int64
	actorSeq atomic.Int64
	cartSeq  atomic.Int64
	txSeq    atomic.Int64

	locks *lockManager
}

func NewStore() *Store {
	return &Store{
		users:       newTable[uuid.UUID, domain.User](),
		movies:      newTable[int64, domain.Movie](),
		actors:      newTable[int64, string](),
		actorMovies: newTable[actorMovieKey, struct{}](),
		carts:       newTable[int64, domain.Cart](),
		cartItems:   newTable[itemKey, int32](),
		orders:      newTable[int64, domain.Order](),
		orderItems:  newTable[itemKey, int32](),
		ratings:     newTable[ratingKey, float64](),
		locks:       newLockManager(),
	}
}

// Do выполняет fn в транзакции. Ошибка или паника fn откатывает все изменения и освобождает блокировки.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx uow.TX) error) error {
	if fn == nil {
		return uow.ErrNilTxFunc
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr //nolint:wrapcheck
	}

	tx := s.begin()
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()

	if fnErr := fn(ctx, &transaction{store: s, tx: tx}); fnErr != nil {
		return fnErr
	}
	tx.commit()
	committed = true
	return nil
}

// GetRepository возвращает репозиторий вне транзакции: каждая запись выполняется в своей автокоммит транзакции.
func (s *Store) GetRepository(name uow.RepositoryName) (uow.Repository, error) {
	return s.repository(name, nil)
}

// HeldLocks количество удерживаемых в данный момент блокировок строк.
func (s *Store) HeldLocks() int {
	return s.locks.heldCount()
}

// WaitingLocks количество транзакций, ждущих освобождения блокировки строки.
func (s *Store) WaitingLocks() int {
	return s.locks.waitingCount()
}

func (s *Store) repository(name uow.RepositoryName, tx *memTx) (uow.Repository, error) {
	switch repoargs.RepositoryName(name) {
	case repoargs.UserRepoName:
		return &UserRepository{store: s, tx: tx}, nil
	case repoargs.MovieRepoName:
		return &MovieRepository{store: s, tx: tx}, nil
	case repoargs.CartRepoName:
		return &CartRepository{store: s, tx: tx}, nil
	case repoargs.CartItemRepoName:
		return &CartItemRepository{store: s, tx: tx}, nil
	case repoargs.OrderRepoName:
		return &OrderRepository{store: s, tx: tx}, nil
	case repoargs.RatingRepoName:
		return &RatingRepository{store: s, tx: tx}, nil
	default:
		return nil, uow.ErrRepositoryNotRegistered
	}
}

func (s *Store) begin() *memTx {
	return &memTx{id: s.txSeq.Add(1), store: s}
}

// write берет блокировки keys и выполняет fn под мьютексом хранилища. Вне транзакции (tx == nil)
// открывает собственную транзакцию и сразу ее завершает.
func (s *Store) write(ctx context.Context, tx *memTx, keys []string, fn func(tx *memTx) error) error {
	own := tx == nil
	if own {
		tx = s.begin()
	}
	for _, key := range keys {
		if err := tx.lock(ctx, key); err != nil {
			if own {
				tx.rollback()
			}
			return err
		}
	}

	s.mu.Lock()
	err := fn(tx)
	s.mu.Unlock()

	if own {
		if err != nil {
			tx.rollback()
		} else {
			tx.commit()
		}
	}
	return err
}

// read выполняет fn под мьютексом хранилища. fn получает id транзакции, от имени которой читаются строки:
// вне транзакции это 0, и видны только зафиксированные данные.
func (s *Store) read(tx *memTx, fn func(txID int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(tx.txID())
}

type transaction struct {
	store *Store
	tx    *memTx
}

func (t *transaction) Get(name uow.RepositoryName) (uow.Repository, error) {
	return t.store.repository(name, t.tx)
}

type memTx struct {
	id       int64
	store    *Store
	undo     []func()
	releases []func()
}

func (t *memTx) txID() int64 {
	if t == nil {
		return 0
	}
	return t.id
}

func (t *memTx) lock(ctx context.Context, key string) error {
	return t.store.locks.acquire(ctx, t.id, key)
}

// record запоминает отмену изменения. Вызывается под мьютексом хранилища.
func (t *memTx) record(fn func()) {
	t.undo = append(t.undo, fn)
}

// release запоминает действие, открывающее изменения другим транзакциям. Вызывается под мьютексом хранилища.
func (t *memTx) release(fn func()) {
	t.releases = append(t.releases, fn)
}

func (t *memTx) rollback() {
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.finish()
	t.store.mu.Unlock()
	t.store.locks.releaseAll(t.id)
}

func (t *memTx) commit() {
	t.store.mu.Lock()
	t.finish()
	t.store.mu.Unlock()
	t.store.locks.releaseAll(t.id)
}

func (t *memTx) finish() {
	for _, fn := range t.releases {
		fn()
	}
	t.undo = nil
	t.releases = nil
}

func userKey(id uuid.UUID) string { return "user:" + id.String() }
func movieKey(id int64) string    { return "movie:" + strconv.FormatInt(id, 10) }
func cartKey(id int64) string     { return "cart:" + strconv.FormatInt(id, 10) }
func orderKey(id int64) string    { return "order:" + strconv.FormatInt(id, 10) }

// cartItemsKey одна блокировка на все позиции корзины: удаление всех позиций должно ждать вставку новой.
func cartItemsKey(cartID int64) string { return "cart_items:" + strconv.FormatInt(cartID, 10) }

// Блокировки уникальных значений: вставка ждет завершения транзакции, вставившей такое же значение,
// как ожидание на уникальном индексе.
func userNameKey(name string) string  { return "user_name:" + name }
func userCartKey(id uuid.UUID) string { return "user_cart:" + id.String() }
func actorNameKey(name string) string { return "actor_name:" + name }

func ratingLockKey(userID uuid.UUID, movieID int64) string {
	return fmt.Sprintf("rating:%s:%d", userID, movieID)
}

func wrap(err error, format string, args ...any) error {
	return fmt.Errorf("[memrepo/%s] %w", fmt.Sprintf(format, args...), err)
}
