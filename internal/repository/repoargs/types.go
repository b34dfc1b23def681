package repoargs

type RepositoryName string

const (
	UserRepoName     RepositoryName = "user"
	MovieRepoName    RepositoryName = "movie"
	CartRepoName     RepositoryName = "cart"
	CartItemRepoName RepositoryName = "cart_item"
	OrderRepoName    RepositoryName = "order"
	RatingRepoName   RepositoryName = "rating"
)
