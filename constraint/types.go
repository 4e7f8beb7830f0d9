package constraint

import (
	"github.com/go-osra/osra/ir"
	"github.com/go-osra/osra/osr"
)

// OSRLookup resolves the current OSR for a value, if one is tracked.
type OSRLookup func(v ir.Value) (osr.OSR, bool)
