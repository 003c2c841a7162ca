package ports

// ContentIdentity computes a short string representing a directory tree's
// current state. It is the cache validity key.
//
//go:generate go run go.uber.org/mock/mockgen -source=identity.go -destination=mocks/mock_identity.go -package=mocks
type ContentIdentity interface {
	// Identity returns the identity of the tree rooted at path. An empty
	// string means "unknown" and forces a full rebuild for the affected
	// units.
	Identity(path string) (string, error)
}
