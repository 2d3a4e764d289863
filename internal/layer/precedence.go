package layer

// Priorities are spaced so every drop-in of a tier sorts between the tier's
// base fragment and the next tier's base fragment.
const (
	// PriorityStep separates consecutive tiers in the search order.
	PriorityStep = 10000

	// MaxDropIns is the number of drop-ins a tier can hold before its
	// priorities would collide with the next tier.
	MaxDropIns = PriorityStep - 1
)

// basePriority returns the priority of the base fragment of the tier at
// position index in the search order.
func basePriority(index int) int {
	return index * PriorityStep
}

// dropInPriority returns the priority of the n-th (0-based) drop-in of the
// tier at position index.
func dropInPriority(index, n int) int {
	return basePriority(index) + 1 + n
}
