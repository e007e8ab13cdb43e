package model

// Schema describes which attributes of a model may leave the API boundary.
// Keys are JSON attribute names.
type Schema struct {
	Private   []string
	Relations map[string]*Schema
}

// IsPrivate reports whether attr must be stripped.
func (s *Schema) IsPrivate(attr string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.Private {
		if p == attr {
			return true
		}
	}
	return false
}

// Relation returns the schema of a nested relation, or nil.
func (s *Schema) Relation(attr string) *Schema {
	if s == nil {
		return nil
	}
	return s.Relations[attr]
}

// UserSchema drives user sanitization.
var UserSchema = &Schema{
	Private: []string{"password", "resetPasswordToken", "confirmationToken"},
	Relations: map[string]*Schema{
		"minted_artworks":  ArtworkSchema,
		"owned_artworks":   ArtworkSchema,
		"placed_orders":    OrderSchema,
		"fulfilled_orders": OrderSchema,
		"stats":            {},
		"memoirs":          {},
		"interviews":       {},
		"links":            {},
	},
}

// ArtworkSchema has nothing private today.
var ArtworkSchema = &Schema{}

// OrderSchema hides the settlement hash of an order.
var OrderSchema = &Schema{
	Private: []string{"tx_hash"},
}
