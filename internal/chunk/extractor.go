package chunk

import "github.com/hieutran512/ragkit/internal/models"

// SymbolExtractor produces the named code constructs found in source,
// given the language profile detected for the file. Implementations
// may panic-recover internally; CodeChunker treats any returned error
// as "no symbols available" and falls back to plain text chunking.
type SymbolExtractor interface {
	ExtractSymbols(source string, profile Profile) ([]models.Symbol, error)
}
