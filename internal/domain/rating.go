package domain

// Ratings is the outcome of a ratings lookup. Scores are stored as the
// locale decimal value multiplied by 10 ("4,5" becomes 45). A miss leaves
// every field nil.
type Ratings struct {
	Critic    *int
	Spectator *int
	Link      *string
}

// AllocineRating is the persisted one-to-one rating row of a movie.
type AllocineRating struct {
	MovieID   int64
	Critic    *int
	Spectator *int
	Link      *string
}
