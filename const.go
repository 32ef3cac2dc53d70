package match

const (
	// EngineVersion is the current version of the matching engine
	EngineVersion = "v1.0.0"

	// SnapshotSchemaVersion is the current version of the snapshot schema
	// Increment this when the snapshot format changes in a backward-incompatible way
	SnapshotSchemaVersion = 1

	// DefaultWalkCap bounds both the dense ladder's best-price rescan
	// and the FOK liquidity precheck walk, guarding worst-case cost
	// under pathological sparsity without affecting a legitimately
	// empty ladder (which terminates at the band boundary regardless).
	DefaultWalkCap = 10000

	// DefaultArenaCapacity is the initial node-arena size; the arena
	// grows (doubling) past this under sustained order flow.
	DefaultArenaCapacity = 4096

	// DefaultIndexCapacity is the initial order-index bucket count.
	DefaultIndexCapacity = 4096
)
