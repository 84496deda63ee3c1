package contracts

// Rule is a user directive assigning one or more source tracks to a single
// cube device. Its textual form is "device=track[,track...]".
type Rule struct {
	Device int   // Target device identifier.
	Tracks []int // Source track indices, in the order given by the user.
}
